package loader

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"rag/internal/domain"
)

// PDFLoader loads a paginated document, one document per page, with the page
// number recorded in metadata. Page content streams are extracted with pdfcpu
// and the text-showing operators (Tj, TJ, ') are decoded into plain text.
type PDFLoader struct {
	path string
}

func NewPDFLoader(path string) *PDFLoader {
	return &PDFLoader{path: path}
}

func (l *PDFLoader) Load(ctx context.Context) ([]domain.Document, error) {
	pdfCtx, err := api.ReadContextFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}

	docs := make([]domain.Document, 0, pdfCtx.PageCount)
	for page := 1; page <= pdfCtx.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, page)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", page, l.path, err)
		}
		var raw []byte
		if r != nil {
			raw, err = io.ReadAll(r)
			if err != nil {
				return nil, fmt.Errorf("read page %d of %s: %w", page, l.path, err)
			}
		}
		docs = append(docs, domain.Document{
			ID:     uuid.NewString(),
			Source: l.path,
			Text:   contentStreamText(raw),
			Metadata: map[string]string{
				"source": l.path,
				"page":   strconv.Itoa(page),
			},
		})
	}
	return docs, nil
}

// contentStreamText decodes the text carried by a page content stream.
// Literal strings belonging to Tj, ', " and TJ operators are concatenated;
// the text-positioning operators Td, TD and T* become newlines.
func contentStreamText(raw []byte) string {
	var out strings.Builder
	var pending []string

	i := 0
	for i < len(raw) {
		switch raw[i] {
		case '(':
			s, next := literalString(raw, i)
			pending = append(pending, s)
			i = next
		case '<':
			// Hex strings appear with subsetted fonts; their bytes rarely map
			// to readable text without the font's cmap, so they are skipped.
			i = skipHexString(raw, i)
		default:
			if isOperatorByte(raw[i]) {
				start := i
				for i < len(raw) && isOperatorByte(raw[i]) {
					i++
				}
				switch string(raw[start:i]) {
				case "Tj", "TJ", "'", "\"":
					for _, s := range pending {
						out.WriteString(s)
					}
					pending = pending[:0]
				case "Td", "TD", "T*":
					pending = pending[:0]
					out.WriteByte('\n')
				}
				continue
			}
			i++
		}
	}
	return strings.TrimSpace(out.String())
}

func isOperatorByte(b byte) bool {
	return b == '\'' || b == '"' || b == '*' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// literalString parses a PDF literal string starting at the opening paren,
// returning the decoded text and the index past the closing paren.
func literalString(raw []byte, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '\\':
			if i+1 >= len(raw) {
				return b.String(), i + 1
			}
			i++
			switch raw[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
				// discard
			case '(', ')', '\\':
				b.WriteByte(raw[i])
			default:
				if raw[i] >= '0' && raw[i] <= '7' {
					code := 0
					for n := 0; n < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7'; n++ {
						code = code*8 + int(raw[i]-'0')
						i++
					}
					i--
					b.WriteByte(byte(code))
				}
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				b.WriteByte(c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), i
}

func skipHexString(raw []byte, start int) int {
	i := start + 1
	for i < len(raw) && raw[i] != '>' {
		i++
	}
	return i + 1
}
