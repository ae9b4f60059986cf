package httpclient

// ResponseHandler classifies a response and decodes its body into target.
type ResponseHandler interface {
	HandleResponse(body []byte, resp *WireResponse, target any) error
}

// JSONResponseHandler classifies by status code and decodes with a Codec.
type JSONResponseHandler struct {
	codec Codec
}

// NewResponseHandler creates a handler. A nil codec uses NewJSONCodec().
func NewResponseHandler(codec Codec) *JSONResponseHandler {
	if codec == nil {
		codec = NewJSONCodec()
	}
	return &JSONResponseHandler{codec: codec}
}

// HandleResponse applies, in order: no response or no status is unknown;
// 4xx is a client error; 5xx is a server error; a nil body is a decoding
// error; otherwise the body is decoded and a failure is a decoding error.
func (h *JSONResponseHandler) HandleResponse(body []byte, resp *WireResponse, target any) error {
	if err := classify(body, resp); err != nil {
		return err
	}
	if body == nil {
		return NewDecodingError(nil)
	}
	if err := h.codec.Decode(body, target); err != nil {
		return NewDecodingError(err)
	}
	return nil
}

// classify runs the status checks shared by HandleResponse and Client.Do.
func classify(body []byte, resp *WireResponse) error {
	if resp == nil || resp.StatusCode == 0 {
		return NewUnknownError(nil)
	}
	if err := ClassifyStatusCode(resp.StatusCode, body); err != nil {
		return err
	}
	return nil
}

// Handle decodes into a fresh T.
func Handle[T any](h ResponseHandler, body []byte, resp *WireResponse) (T, error) {
	var out T
	err := h.HandleResponse(body, resp, &out)
	return out, err
}
