package intake

import (
	"fmt"
	"io"
)

// maxDocumentSize bounds documents read from a stream.
const maxDocumentSize = 16 << 20

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}
