package handler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// maxFormMemory is how much of a multipart body is held in memory before
// file parts spill to temporary files.
const maxFormMemory = 32 << 20

var errNotMultipart = errors.New("request is not multipart/form-data")

// parseMultipartForm decodes the request body as multipart/form-data.
// The caller must call RemoveAll on the returned form.
func parseMultipartForm(req events.APIGatewayProxyRequest) (*multipart.Form, error) {
	mediaType, params, err := mime.ParseMediaType(getHeader(req, "Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, errNotMultipart
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, errNotMultipart
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		body, err = base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode body: %w", err)
		}
	}

	form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxFormMemory)
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	return form, nil
}

// formValue returns the first value of a non-file form field.
func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
