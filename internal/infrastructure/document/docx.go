package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
)

const docxBodyPart = "word/document.xml"

// maxDocxBodyBytes bounds the decompressed size of the document part.
const maxDocxBodyBytes = 32 << 20

// extractDOCX returns the paragraph text of a Word document. Formatting,
// headers and footers are dropped.
func (e *Extractor) extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", billingerrors.MalformedInput("unreadable DOCX: " + err.Error())
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", billingerrors.MalformedInput("unreadable DOCX: missing " + docxBodyPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", billingerrors.MalformedInput("unreadable DOCX: " + err.Error())
	}
	defer rc.Close()

	var buf strings.Builder
	dec := xml.NewDecoder(io.LimitReader(rc, maxDocxBodyBytes))
	inText := false
	for buf.Len() < e.maxChars {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", billingerrors.MalformedInput("unreadable DOCX: " + err.Error())
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteByte('\t')
			case "br", "cr":
				buf.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return buf.String(), nil
}
