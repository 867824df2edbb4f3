package record

import (
	"bytes"
	"encoding/base64"
	"io"
)

func newBodyReader(body []byte) io.Reader {
	return bytes.NewReader(body)
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
