package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/tidwall/gjson"

	"github.com/kbukum/futurenet/httpclient"
)

type printer struct {
	out, err io.Writer

	method    *color.Color
	url       *color.Color
	ok        *color.Color
	warn      *color.Color
	fail      *color.Color
	headerKey *color.Color
}

func newPrinter(out, errOut io.Writer, noColor bool) *printer {
	p := &printer{
		out:       out,
		err:       errOut,
		method:    color.New(color.FgBlue, color.Bold),
		url:       color.New(color.FgCyan),
		ok:        color.New(color.FgGreen, color.Bold),
		warn:      color.New(color.FgYellow, color.Bold),
		fail:      color.New(color.FgRed, color.Bold),
		headerKey: color.New(color.FgYellow),
	}
	if noColor {
		for _, c := range []*color.Color{p.method, p.url, p.ok, p.warn, p.fail, p.headerKey} {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) request(method, url string) {
	fmt.Fprintf(p.err, "%s %s\n", p.method.Sprint(method), p.url.Sprint(url))
}

func (p *printer) statusColor(status int) *color.Color {
	switch {
	case status >= 400:
		return p.fail
	case status >= 300:
		return p.warn
	default:
		return p.ok
	}
}

func (p *printer) response(resp *httpclient.WireResponse, headers bool) {
	status := fmt.Sprintf("%d", resp.StatusCode)
	fmt.Fprintln(p.err, p.statusColor(resp.StatusCode).Sprint(status))

	if headers {
		keys := make([]string, 0, len(resp.Header))
		for k := range resp.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(p.err, "%s: %s\n", p.headerKey.Sprint(k), strings.Join(resp.Header[k], ", "))
		}
	}

	if len(resp.Body) == 0 {
		return
	}
	fmt.Fprintln(p.out, formatBody(resp.Body))
}

// formatBody pretty-prints JSON bodies and returns anything else as text.
func formatBody(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	return strings.TrimRight(gjson.GetBytes(body, "@pretty").Raw, "\n")
}

func (p *printer) failure(err error) {
	var e *httpclient.Error
	if errors.As(err, &e) {
		fmt.Fprintf(p.err, "%s %s\n", p.fail.Sprint(e.Code.String()), e.Message)
		return
	}
	fmt.Fprintf(p.err, "%s %v\n", p.fail.Sprint("error"), err)
}

// progressBar draws upload progress on stderr when it is a terminal.
type progressBar struct {
	w       io.Writer
	enabled bool
	c       *color.Color
}

func (p *printer) progressBar() *progressBar {
	enabled := false
	if f, ok := p.err.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &progressBar{w: p.err, enabled: enabled, c: p.url}
}

const barWidth = 30

func (b *progressBar) update(pr httpclient.Progress) {
	if !b.enabled {
		return
	}
	fmt.Fprintf(b.w, "\r%s", b.render(pr))
}

func (b *progressBar) render(pr httpclient.Progress) string {
	frac := pr.Fraction()
	filled := int(frac * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	return fmt.Sprintf("[%s] %3.0f%% %d/%d bytes", b.c.Sprint(bar), frac*100, pr.TotalBytesSent, pr.TotalExpected)
}

func (b *progressBar) finish() {
	if b.enabled {
		fmt.Fprintln(b.w)
	}
}
