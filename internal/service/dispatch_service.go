package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/seacliff-digital/reportpilot/internal/gmail"
	"github.com/seacliff-digital/reportpilot/internal/models"
	"github.com/seacliff-digital/reportpilot/pkg/config"
	appErrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

type notificationSender interface {
	SendNow(ctx context.Context, raw []byte) (string, error)
	CreateDraft(ctx context.Context, raw []byte) (string, error)
}

type attachmentReader interface {
	Read(path string) ([]byte, error)
}

// DispatchSummary tallies one dispatch pass.
type DispatchSummary struct {
	Total   int
	Sent    int
	Drafted int
	Failed  int
	Errors  []string
}

// DispatchService sends approved notifications, spacing messages out so a
// batch never trips the provider's sending heuristics. Draft-only mode
// stores drafts instead of sending and leaves entries Approved.
type DispatchService struct {
	approvals *ApprovalService
	sender    notificationSender
	reader    attachmentReader
	metrics   *MetricsService
	from      string
	cfg       config.DispatchConfig
	sleep     func(time.Duration)
	logger    *zap.Logger
}

// NewDispatchService wires the dispatcher.
func NewDispatchService(
	approvals *ApprovalService,
	sender notificationSender,
	reader attachmentReader,
	metrics *MetricsService,
	from string,
	cfg config.DispatchConfig,
	logger *zap.Logger,
) *DispatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchService{
		approvals: approvals,
		sender:    sender,
		reader:    reader,
		metrics:   metrics,
		from:      from,
		cfg:       cfg,
		sleep:     time.Sleep,
		logger:    logger,
	}
}

// WithSleep swaps the inter-message delay implementation, for tests.
func (s *DispatchService) WithSleep(sleep func(time.Duration)) *DispatchService {
	s.sleep = sleep
	return s
}

// Dispatch sends every Approved entry. Per-entry failures are collected and
// the pass continues; an auth failure aborts because every later send would
// fail the same way. Entries move to Sent only after their send succeeded.
func (s *DispatchService) Dispatch(ctx context.Context) (*DispatchSummary, error) {
	entries, err := s.approvals.List(ctx, models.StatusApproved)
	if err != nil {
		return nil, err
	}

	summary := &DispatchSummary{Total: len(entries)}
	s.logger.Info("dispatch pass started",
		zap.Int("approved", len(entries)),
		zap.Bool("draft_only", s.cfg.DraftOnly))

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && s.cfg.InterMessageDelay > 0 {
			s.sleep(s.cfg.InterMessageDelay)
		}

		if err := s.dispatchEntry(ctx, entry); err != nil {
			if appErrors.HasCode(err, appErrors.ErrUnauthorized) {
				return summary, err
			}
			summary.Failed++
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("entry %s: %v", entry.EntryID, err))
			s.logger.Error("dispatch failed",
				zap.String("entry_id", entry.EntryID), zap.Error(err))
			continue
		}
		if s.cfg.DraftOnly {
			summary.Drafted++
		} else {
			summary.Sent++
			if s.metrics != nil {
				s.metrics.ObserveNotificationSent()
			}
		}
	}

	s.logger.Info("dispatch pass finished",
		zap.Int("sent", summary.Sent),
		zap.Int("drafted", summary.Drafted),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (s *DispatchService) dispatchEntry(ctx context.Context, entry models.ApprovalEntry) error {
	if entry.ContactEmail == "" {
		return fmt.Errorf("entry has no contact email")
	}

	msg := gmail.Message{
		From:     s.from,
		To:       entry.ContactEmail,
		Subject:  entry.EmailSubject,
		TextBody: entry.TextBody,
		HTMLBody: entry.HTMLBody,
	}
	if entry.PDFPath != "" {
		data, err := s.reader.Read(entry.PDFPath)
		if err != nil {
			return fmt.Errorf("read report pdf: %w", err)
		}
		msg.Attachments = []gmail.Attachment{{
			Filename: filepath.Base(entry.PDFPath),
			MIMEType: "application/pdf",
			Data:     data,
		}}
	}

	raw, err := gmail.EncodeMIME(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	if s.cfg.DraftOnly {
		draftID, err := s.sender.CreateDraft(ctx, raw)
		if err != nil {
			return err
		}
		s.logger.Info("created notification draft",
			zap.String("entry_id", entry.EntryID),
			zap.String("draft_id", draftID))
		return nil
	}

	sentID, err := s.sender.SendNow(ctx, raw)
	if err != nil {
		return err
	}
	s.logger.Info("sent notification",
		zap.String("entry_id", entry.EntryID),
		zap.String("sent_id", sentID))
	return s.approvals.MarkSent(ctx, entry.EntryID)
}
