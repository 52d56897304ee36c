package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	maildomain "mailbridge-backend/internal/mail/domain"
	"mailbridge-backend/internal/mail/repository"
	"mailbridge-backend/pkg/storage"

	"github.com/google/uuid"
)

// Enricher produces a short textual summary of an attachment's content.
type Enricher interface {
	SummarizeDocument(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}

// Embedder stores a vector embedding for an indexed document.
type Embedder interface {
	UpsertDocumentEmbedding(ctx context.Context, contentHash, userID, filename, summary string) error
}

// Pipeline ingests attachment bytes: content-hash dedup, blob upload,
// metadata persistence and optional enrichment. Enricher and Embedder
// are injected; either may be nil, which disables that stage.
type Pipeline struct {
	documents repository.DocumentRepository
	blobs     storage.BlobStorage
	enricher  Enricher
	embedder  Embedder
}

func NewPipeline(documents repository.DocumentRepository, blobs storage.BlobStorage, enricher Enricher, embedder Embedder) *Pipeline {
	return &Pipeline{
		documents: documents,
		blobs:     blobs,
		enricher:  enricher,
		embedder:  embedder,
	}
}

// IndexBytes runs one attachment through the pipeline. The returned
// bool reports whether the content was already indexed for this user;
// dedup compares SHA-256 of the raw bytes, so renamed copies of the
// same file are still recognized.
func (p *Pipeline) IndexBytes(ctx context.Context, userID string, ref maildomain.AttachmentRef, data []byte) (*maildomain.IndexedDocument, bool, error) {
	if len(data) == 0 {
		return nil, false, &maildomain.AttachmentError{Filename: ref.Filename, Err: fmt.Errorf("empty attachment body")}
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	existing, err := p.documents.FindByHash(userID, contentHash)
	if err != nil {
		return nil, false, &maildomain.AttachmentError{Filename: ref.Filename, Err: err}
	}
	if existing != nil {
		return existing, true, nil
	}

	objectPath := fmt.Sprintf("users/%s/attachments/%s/%s", userID, contentHash, ref.Filename)
	accessURL, err := p.blobs.Save(ctx, objectPath, ref.MimeType, data)
	if err != nil {
		return nil, false, &maildomain.AttachmentError{Filename: ref.Filename, Err: fmt.Errorf("blob upload: %w", err)}
	}

	doc := &maildomain.IndexedDocument{
		ID:          uuid.New().String(),
		UserID:      userID,
		ContentHash: contentHash,
		Filename:    ref.Filename,
		MimeType:    ref.MimeType,
		ByteSize:    int64(len(data)),
		StoragePath: objectPath,
		AccessURL:   accessURL,
	}
	if err := p.documents.Create(doc); err != nil {
		return nil, false, &maildomain.AttachmentError{Filename: ref.Filename, Err: err}
	}

	p.enrich(ctx, doc, data)

	return doc, false, nil
}

// enrich is best effort: a failed summary or embedding never fails the
// pipeline, the document simply stays unenriched.
func (p *Pipeline) enrich(ctx context.Context, doc *maildomain.IndexedDocument, data []byte) {
	if p.enricher == nil || !enrichable(doc.MimeType) {
		return
	}

	summary, err := p.enricher.SummarizeDocument(ctx, doc.Filename, doc.MimeType, data)
	if err != nil {
		log.Printf("[Pipeline] Enrichment failed for %s: %v", doc.Filename, err)
		return
	}

	embedded := false
	if p.embedder != nil {
		if err := p.embedder.UpsertDocumentEmbedding(ctx, doc.ContentHash, doc.UserID, doc.Filename, summary); err != nil {
			log.Printf("[Pipeline] Embedding failed for %s: %v", doc.Filename, err)
		} else {
			embedded = true
		}
	}

	if err := p.documents.UpdateEnrichment(doc.ID, summary, embedded); err != nil {
		log.Printf("[Pipeline] Failed to save enrichment for %s: %v", doc.Filename, err)
		return
	}
	doc.Summary = summary
	doc.Embedded = embedded
}

// IndexMessageAttachments fetches and indexes every attachment of one
// ingested message. Failures are contained per attachment and returned
// together, so one bad attachment never blocks its siblings.
func (p *Pipeline) IndexMessageAttachments(ctx context.Context, provider maildomain.MailProvider, userID, accessToken, refreshToken, messageID string, refs []maildomain.AttachmentRef, onTokenRefresh maildomain.TokenUpdateFunc) []error {
	var errs []error
	for _, ref := range refs {
		if ref.ProviderAttachmentID == "" {
			continue
		}
		data, err := provider.GetAttachmentData(ctx, accessToken, refreshToken, messageID, ref.ProviderAttachmentID, onTokenRefresh)
		if err != nil {
			errs = append(errs, &maildomain.AttachmentError{Filename: ref.Filename, Err: err})
			continue
		}
		if _, _, err := p.IndexBytes(ctx, userID, ref, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Images, PDFs and text documents can be summarized; archives and
// binaries cannot.
func enrichable(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return true
	case strings.HasPrefix(mimeType, "text/"):
		return true
	case mimeType == "application/pdf":
		return true
	default:
		return false
	}
}
