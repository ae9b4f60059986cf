package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/futurenet/httpclient"
	"github.com/kbukum/futurenet/httpclient/jwtauth"
)

type requestOptions struct {
	method  string
	query   []string
	data    []string
	raw     string
	upload  string
	headers []string
	user    string
	bearer  string
	timeout time.Duration
}

func newRequestCmd(global *globalOptions) *cobra.Command {
	opts := &requestOptions{}
	cmd := &cobra.Command{
		Use:   "request HOST PATH",
		Short: "Send one request and print the response",
		Long: `Send one request and print the response.

Parameters are key=value pairs. Values that parse as integers, numbers,
booleans or yyyy-MM-dd dates keep that type; repeating a key builds an
array. Query parameters go into the URL, data parameters into a JSON body.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if opts.timeout > 0 {
				cfg.Client.Timeout = opts.timeout
			}
			return runRequest(cmd, global, opts, cfg, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.method, "method", "X", "GET", "HTTP method")
	f.StringArrayVarP(&opts.query, "query", "q", nil, "query parameter key=value (repeatable)")
	f.StringArrayVarP(&opts.data, "data", "d", nil, "JSON body parameter key=value (repeatable)")
	f.StringVar(&opts.raw, "raw", "", "send this file verbatim as the body")
	f.StringVar(&opts.upload, "upload", "", "upload this file with progress")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, "request header 'Name: value' (repeatable)")
	f.StringVarP(&opts.user, "user", "u", "", "basic credential user:password")
	f.StringVar(&opts.bearer, "bearer", "", "bearer token")
	f.DurationVarP(&opts.timeout, "timeout", "t", 0, "request timeout (default from config, 20s)")
	cmd.MarkFlagsMutuallyExclusive("query", "data", "raw", "upload")
	cmd.MarkFlagsMutuallyExclusive("user", "bearer")
	return cmd
}

func runRequest(cmd *cobra.Command, global *globalOptions, opts *requestOptions, cfg *appConfig, host, path string) error {
	ctx := cmd.Context()
	rt, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(ctx, nil) }()

	epOpts, err := opts.endpointOptions(cfg)
	if err != nil {
		return err
	}
	ep := httpclient.NewEndpoint[struct{}](host, path, epOpts...)

	out := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), global.noColor)
	out.request(string(ep.Method()), host+path)

	var resp *httpclient.WireResponse
	if _, ok := ep.UploadPayload(); ok {
		bar := out.progressBar()
		resp, err = rt.client.DoWithProgress(ctx, ep, bar.update)
		bar.finish()
	} else {
		resp, err = rt.client.Do(ctx, ep)
	}
	if resp != nil {
		out.response(resp, global.verbose)
	}
	return err
}

func (o *requestOptions) endpointOptions(cfg *appConfig) ([]httpclient.EndpointOption, error) {
	opts := []httpclient.EndpointOption{httpclient.WithMethod(httpclient.Method(strings.ToUpper(o.method)))}

	switch {
	case len(o.query) > 0:
		params, err := parseParams(o.query)
		if err != nil {
			return nil, err
		}
		opts = append(opts, httpclient.WithPlacement(httpclient.Query(params)))
	case len(o.data) > 0:
		params, err := parseParams(o.data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, httpclient.WithPlacement(httpclient.Body(params)))
	case o.raw != "":
		data, err := os.ReadFile(o.raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, httpclient.WithPlacement(httpclient.RawData(data)))
	case o.upload != "":
		data, err := os.ReadFile(o.upload)
		if err != nil {
			return nil, err
		}
		opts = append(opts, httpclient.WithPlacement(httpclient.Upload(data)))
	}

	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("header %q is not 'Name: value'", h)
		}
		opts = append(opts, httpclient.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}

	switch {
	case o.user != "":
		name, password, _ := strings.Cut(o.user, ":")
		opts = append(opts, httpclient.WithAuthentication(httpclient.BasicAuth(name, password)))
	case o.bearer != "":
		opts = append(opts, httpclient.WithAuthentication(httpclient.BearerAuth(o.bearer)))
	case cfg.JWT != nil:
		p, err := jwtauth.New(*cfg.JWT)
		if err != nil {
			return nil, err
		}
		opts = append(opts, httpclient.WithAuthentication(p))
	}
	return opts, nil
}

// parseParams turns key=value pairs into typed parameters. A key given more
// than once becomes an Array in flag order.
func parseParams(pairs []string) (httpclient.Parameters, error) {
	params := make(httpclient.Parameters, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", pair)
		}
		value := parseValue(raw)
		switch prev := params[key].(type) {
		case nil:
			params[key] = value
		case httpclient.Array:
			params[key] = append(prev, value)
		default:
			params[key] = httpclient.Array{prev, value}
		}
	}
	return params, nil
}

func parseValue(s string) httpclient.ParameterValue {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return httpclient.Int64(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return httpclient.Double(f)
	}
	if s == "true" || s == "false" {
		return httpclient.Bool(s == "true")
	}
	if t, err := time.Parse(httpclient.DateLayout, s); err == nil {
		return httpclient.Date(t)
	}
	return httpclient.String(s)
}
