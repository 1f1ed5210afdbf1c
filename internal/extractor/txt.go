package extractor

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rotisserie/eris"
)

// ReadTXT decodes a plain text syllabus (UTF-8, UTF-16 with BOM or a legacy
// single byte encoding) into a single page document.
func ReadTXT(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, eris.New("empty text file")
	}
	// Byte sniffing only makes sense for input that is neither UTF-8 nor
	// BOM-marked UTF-16.
	if !utf8.Valid(data) && !hasUTF16BOM(data) {
		if err := ValidateTXT(data); err != nil {
			return nil, err
		}
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, eris.Wrap(err, "failed to decode text file")
	}

	return NewTextDocument(cleanText(text)), nil
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}

func decodeText(data []byte) (string, error) {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return string(data[3:]), nil
	}

	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		decoder := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoder := charmap.Windows1252.NewDecoder()
	decoded, _, err := transform.Bytes(decoder, data)
	if err == nil {
		return string(decoded), nil
	}

	decoder = charmap.ISO8859_1.NewDecoder()
	decoded, _, err = transform.Bytes(decoder, data)
	if err == nil {
		return string(decoded), nil
	}

	return string(data), nil
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")

	var cleanedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	result := strings.Join(cleanedLines, "\n")

	return strings.TrimSpace(result)
}

// ValidateTXT checks if the data appears to be valid text
func ValidateTXT(data []byte) error {
	if len(data) == 0 {
		return eris.New("empty text file")
	}

	// Check if it's mostly printable or whitespace characters
	printableCount := 0
	sampleSize := 512
	if len(data) < sampleSize {
		sampleSize = len(data)
	}

	for i := 0; i < sampleSize; i++ {
		b := data[i]
		// Printable ASCII, tabs, newlines, carriage returns
		if (b >= 32 && b <= 126) || b == '\t' || b == '\n' || b == '\r' {
			printableCount++
		}
	}

	// If less than 80% of sample is printable text, it might be binary
	if float64(printableCount)/float64(sampleSize) < 0.8 {
		return eris.New("file does not appear to be valid text")
	}

	return nil
}
