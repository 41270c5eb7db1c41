package output

import (
	"bytes"
)

// DocsGlobal is the browser global the documentation site reads.
const DocsGlobal = "window.FEATURE_MAP_CONFIG"

// DocsBlob renders doc as a JavaScript assignment to DocsGlobal.
func DocsBlob(doc interface{}) ([]byte, error) {
	data, err := DeterministicEncode(doc)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(data, []byte("null")) {
		data = []byte("{}")
	}

	var buf bytes.Buffer
	buf.WriteString(DocsGlobal)
	buf.WriteString(" = ")
	buf.Write(data)
	buf.WriteString(";\n")
	return buf.Bytes(), nil
}
