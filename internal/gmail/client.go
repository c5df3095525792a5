package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	apperrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

// userID addresses the authorized mailbox in every API call.
const userID = "me"

// MessageMeta is the envelope subset the pipeline logs and stores.
type MessageMeta struct {
	ID      string
	From    string
	Subject string
}

// Client is the retry-wrapped Gmail surface the pipeline and dispatcher use.
type Client struct {
	svc     *gmailapi.Service
	retrier *Retrier
	logger  *zap.Logger
}

// NewClient builds a Gmail client over the given credentials.
func NewClient(ctx context.Context, creds *Credentials, retrier *Retrier, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(creds))
	if err != nil {
		return nil, apperrors.Wrap(err, "GMAIL_INIT", 500, "building gmail service")
	}
	return &Client{svc: svc, retrier: retrier, logger: logger}, nil
}

// BuildQuery assembles the ingestion search string: unprocessed mail from
// the configured report senders that carries a PDF attachment.
func BuildQuery(senders []string, unreadOnly bool, processedLabel string) string {
	var parts []string
	if len(senders) > 0 {
		quoted := make([]string, len(senders))
		for i, s := range senders {
			quoted[i] = "from:" + s
		}
		parts = append(parts, "("+strings.Join(quoted, " OR ")+")")
	}
	if unreadOnly {
		parts = append(parts, "is:unread")
	}
	parts = append(parts, "has:attachment", "filename:pdf")
	if processedLabel != "" {
		parts = append(parts, fmt.Sprintf("-label:%q", processedLabel))
	}
	return strings.Join(parts, " ")
}

// Search returns up to maxResults message IDs matching the query, following
// result pages as needed.
func (c *Client) Search(ctx context.Context, query string, maxResults int64) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		var resp *gmailapi.ListMessagesResponse
		err := c.retrier.Do("search messages", func() error {
			call := c.svc.Users.Messages.List(userID).Q(query).MaxResults(maxResults).Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var callErr error
			resp, callErr = call.Do()
			return callErr
		})
		if err != nil {
			return nil, err
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
			if int64(len(ids)) >= maxResults {
				return ids, nil
			}
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Metadata fetches the sender and subject of one message.
func (c *Client) Metadata(ctx context.Context, messageID string) (MessageMeta, error) {
	var msg *gmailapi.Message
	err := c.retrier.Do("fetch message metadata", func() error {
		var callErr error
		msg, callErr = c.svc.Users.Messages.Get(userID, messageID).
			Format("metadata").MetadataHeaders("From", "Subject").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return MessageMeta{}, err
	}

	meta := MessageMeta{ID: messageID}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				meta.From = h.Value
			case "Subject":
				meta.Subject = h.Value
			}
		}
	}
	return meta, nil
}

// FetchAttachments downloads every PDF attachment of a message. A message
// that has disappeared surfaces as a not-found typed error.
func (c *Client) FetchAttachments(ctx context.Context, messageID string) ([]Attachment, error) {
	var msg *gmailapi.Message
	err := c.retrier.Do("fetch message", func() error {
		var callErr error
		msg, callErr = c.svc.Users.Messages.Get(userID, messageID).Format("full").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var attachments []Attachment
	for _, part := range flattenParts(msg.Payload) {
		if part.Filename == "" || !strings.EqualFold(filepath.Ext(part.Filename), ".pdf") {
			continue
		}
		if part.Body == nil || part.Body.AttachmentId == "" {
			continue
		}

		var body *gmailapi.MessagePartBody
		err := c.retrier.Do("fetch attachment", func() error {
			var callErr error
			body, callErr = c.svc.Users.Messages.Attachments.
				Get(userID, messageID, part.Body.AttachmentId).Context(ctx).Do()
			return callErr
		})
		if err != nil {
			return nil, err
		}

		data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(body.Data, "="))
		if err != nil {
			return nil, apperrors.Wrap(err, "GMAIL_DECODE", 500,
				fmt.Sprintf("decoding attachment %q", part.Filename))
		}
		attachments = append(attachments, Attachment{
			Filename: part.Filename,
			MIMEType: part.MimeType,
			Data:     data,
		})
	}
	return attachments, nil
}

func flattenParts(payload *gmailapi.MessagePart) []*gmailapi.MessagePart {
	if payload == nil {
		return nil
	}
	parts := []*gmailapi.MessagePart{payload}
	for _, child := range payload.Parts {
		parts = append(parts, flattenParts(child)...)
	}
	return parts
}

// EnsureProcessedLabel resolves the processed label's ID, creating the label
// when the mailbox does not have it yet.
func (c *Client) EnsureProcessedLabel(ctx context.Context, name string) (string, error) {
	var list *gmailapi.ListLabelsResponse
	err := c.retrier.Do("list labels", func() error {
		var callErr error
		list, callErr = c.svc.Users.Labels.List(userID).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", err
	}
	for _, label := range list.Labels {
		if label.Name == name {
			return label.Id, nil
		}
	}

	var created *gmailapi.Label
	err = c.retrier.Do("create label", func() error {
		var callErr error
		created, callErr = c.svc.Users.Labels.Create(userID, &gmailapi.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("created processed label", zap.String("label", name))
	return created.Id, nil
}

// MarkProcessed applies the processed label to a message and clears its
// unread state. Re-applying an already present label and removing an absent
// one are server-side no-ops, so the call is idempotent.
func (c *Client) MarkProcessed(ctx context.Context, messageID, labelID string) error {
	return c.retrier.Do("mark processed", func() error {
		_, err := c.svc.Users.Messages.Modify(userID, messageID, &gmailapi.ModifyMessageRequest{
			AddLabelIds:    []string{labelID},
			RemoveLabelIds: []string{"UNREAD"},
		}).Context(ctx).Do()
		return err
	})
}

// CreateDraft stores a rendered message as a draft for manual review runs.
func (c *Client) CreateDraft(ctx context.Context, raw []byte) (string, error) {
	var draft *gmailapi.Draft
	err := c.retrier.Do("create draft", func() error {
		var callErr error
		draft, callErr = c.svc.Users.Drafts.Create(userID, &gmailapi.Draft{
			Message: &gmailapi.Message{Raw: encodeRaw(raw)},
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", err
	}
	return draft.Id, nil
}

// SendDraft dispatches a previously created draft and returns the sent
// message id.
func (c *Client) SendDraft(ctx context.Context, draftID string) (string, error) {
	var sent *gmailapi.Message
	err := c.retrier.Do("send draft", func() error {
		var callErr error
		sent, callErr = c.svc.Users.Drafts.Send(userID, &gmailapi.Draft{Id: draftID}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", err
	}
	return sent.Id, nil
}

// SendNow dispatches a rendered message directly and returns the sent
// message id.
func (c *Client) SendNow(ctx context.Context, raw []byte) (string, error) {
	var sent *gmailapi.Message
	err := c.retrier.Do("send message", func() error {
		var callErr error
		sent, callErr = c.svc.Users.Messages.Send(userID, &gmailapi.Message{Raw: encodeRaw(raw)}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", err
	}
	return sent.Id, nil
}

func encodeRaw(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}
