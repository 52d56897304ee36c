package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	maildomain "mailbridge-backend/internal/mail/domain"
)

const (
	syncPageSize    = 25
	syncMaxMessages = 100
	syncBatchSize   = 5
	syncThrottleTTL = 10 * time.Second
)

type messageOutcome struct {
	stored         bool
	alreadyKnown   bool
	decodeFailed   bool
	attachmentErrs int
	err            error
}

// SyncEmails runs one bounded sync for the user. At most one run per
// user executes at a time: a throttle entry or a held lock makes the
// call a cheap no-op reported via SyncReport.Skipped. A run fetches at
// most syncMaxMessages message refs, newest first, windowed from the
// last checkpoint, and ingests them in batches of syncBatchSize.
func (u *mailUsecase) SyncEmails(ctx context.Context, userID string) (*SyncReport, error) {
	report := &SyncReport{}

	throttleKey := "sync:last:" + userID
	if _, hit, err := u.throttle.Get(throttleKey); err == nil && hit {
		report.Skipped = true
		report.SkipReason = "throttled"
		return report, nil
	}

	acquired, err := u.syncState.TryAcquireLock(userID, u.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !acquired {
		report.Skipped = true
		report.SkipReason = "sync already running"
		return report, nil
	}
	defer func() {
		if err := u.syncState.ReleaseLock(userID); err != nil {
			log.Printf("[Sync] Failed to release lock for user %s: %v", userID, err)
		}
	}()

	accessToken, refreshToken, onRefresh, err := u.credentials(userID)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()

	query := ""
	checkpoint, err := u.syncState.GetCheckpoint(userID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if checkpoint != nil {
		query = fmt.Sprintf("after:%d", checkpoint.LastSyncedAt.Unix())
	}

	refs, err := u.listWindow(ctx, accessToken, refreshToken, query, onRefresh)
	if err != nil {
		return nil, err
	}
	report.Fetched = len(refs)

	// Bounded fan-out: at most syncBatchSize messages in flight.
	sem := make(chan struct{}, syncBatchSize)
	outcomes := make(chan messageOutcome, len(refs))
	for _, ref := range refs {
		go func(ref maildomain.MessageRef) {
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes <- u.ingestMessage(ctx, userID, accessToken, refreshToken, ref, onRefresh)
		}(ref)
	}

	var fatal error
	for range refs {
		outcome := <-outcomes
		switch {
		case outcome.err != nil:
			if errors.Is(outcome.err, maildomain.ErrAuthExpired) {
				fatal = outcome.err
			} else {
				log.Printf("[Sync] Message failed for user %s: %v", userID, outcome.err)
			}
		case outcome.alreadyKnown:
			report.AlreadyKnown++
		case outcome.decodeFailed:
			report.DecodeFailures++
		case outcome.stored:
			report.Stored++
		}
		report.AttachmentErrors += outcome.attachmentErrs
	}
	if fatal != nil {
		return nil, fatal
	}

	// The checkpoint is the run's start time, so messages arriving
	// mid-run fall into the next window.
	if err := u.syncState.SetCheckpoint(userID, startedAt); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	if err := u.throttle.Set(throttleKey, "1", syncThrottleTTL); err != nil {
		log.Printf("[Sync] Failed to set throttle for user %s: %v", userID, err)
	}

	log.Printf("[Sync] User %s: %d fetched, %d stored, %d known, %d decode failures, %d attachment errors",
		userID, report.Fetched, report.Stored, report.AlreadyKnown, report.DecodeFailures, report.AttachmentErrors)
	return report, nil
}

// listWindow pages through the provider's list endpoint until the
// window is exhausted or the per-run cap is reached.
func (u *mailUsecase) listWindow(ctx context.Context, accessToken, refreshToken, query string, onRefresh maildomain.TokenUpdateFunc) ([]maildomain.MessageRef, error) {
	var refs []maildomain.MessageRef
	pageToken := ""
	for {
		remaining := syncMaxMessages - len(refs)
		if remaining <= 0 {
			break
		}
		pageSize := int64(syncPageSize)
		if int64(remaining) < pageSize {
			pageSize = int64(remaining)
		}

		page, err := u.provider.ListMessageRefs(ctx, accessToken, refreshToken, query, pageToken, pageSize, onRefresh)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		refs = append(refs, page.Refs...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	if len(refs) > syncMaxMessages {
		refs = refs[:syncMaxMessages]
	}
	return refs, nil
}

// ingestMessage fetches, decodes and stores one message, then fans out
// its attachments. Every failure mode except expired credentials is
// contained here.
func (u *mailUsecase) ingestMessage(ctx context.Context, userID, accessToken, refreshToken string, ref maildomain.MessageRef, onRefresh maildomain.TokenUpdateFunc) messageOutcome {
	known, err := u.emails.Exists(userID, ref.ID)
	if err != nil {
		return messageOutcome{err: err}
	}
	if known {
		return messageOutcome{alreadyKnown: true}
	}

	msg, err := u.provider.GetMessage(ctx, accessToken, refreshToken, ref.ID, onRefresh)
	if err != nil {
		return messageOutcome{err: err}
	}

	email, err := u.decoder.Decode(msg, userID)
	if err != nil {
		log.Printf("[Sync] Decode failed for message %s: %v", ref.ID, err)
		return messageOutcome{decodeFailed: true}
	}

	if err := u.emails.UpsertEmail(email); err != nil {
		return messageOutcome{err: err}
	}

	outcome := messageOutcome{stored: true}
	attErrs := u.pipeline.IndexMessageAttachments(ctx, u.provider, userID, accessToken, refreshToken, ref.ID, email.Attachments, onRefresh)
	for _, attErr := range attErrs {
		log.Printf("[Sync] Attachment failed for message %s: %v", ref.ID, attErr)
	}
	outcome.attachmentErrs = len(attErrs)
	return outcome
}
