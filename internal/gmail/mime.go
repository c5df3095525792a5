package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"
)

// Attachment is one file carried by an outgoing or ingested message.
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Message is a fully rendered outgoing notification.
type Message struct {
	From        string
	To          string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// EncodeMIME renders the message as an RFC 2045 multipart/mixed document:
// a multipart/alternative body (plain text first, HTML second) followed by
// base64 attachment parts.
func EncodeMIME(m Message) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.From)
	fmt.Fprintf(&buf, "To: %s\r\n", m.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	if err := writeBody(&buf, mixed, m); err != nil {
		return nil, err
	}

	for _, att := range m.Attachments {
		if err := writeAttachment(mixed, att); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBody(buf *bytes.Buffer, mixed *multipart.Writer, m Message) error {
	alt := multipart.NewWriter(buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))
	if _, err := mixed.CreatePart(header); err != nil {
		return err
	}
	// CreatePart wrote the part header into buf; the alternative writer
	// continues in place.

	text, err := alt.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=UTF-8"},
	})
	if err != nil {
		return err
	}
	if _, err := text.Write([]byte(m.TextBody)); err != nil {
		return err
	}

	html, err := alt.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return err
	}
	if _, err := html.Write([]byte(m.HTMLBody)); err != nil {
		return err
	}

	return alt.Close()
}

func writeAttachment(mixed *multipart.Writer, att Attachment) error {
	mimeType := att.MIMEType
	if mimeType == "" {
		mimeType = detectMIMEType(att.Filename)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", fmt.Sprintf("%s; name=%q", mimeType, att.Filename))
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
	header.Set("Content-Transfer-Encoding", "base64")

	part, err := mixed.CreatePart(header)
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(att.Data)
	// Wrap at 76 columns per RFC 2045.
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := part.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

func detectMIMEType(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return "application/pdf"
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}
