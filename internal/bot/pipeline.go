package bot

import (
	"context"
	"log"
	"time"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
	"github.com/ccccccarachen/content-collection-skill/internal/integrations/llm"
	"github.com/ccccccarachen/content-collection-skill/internal/pending"
	"github.com/ccccccarachen/content-collection-skill/internal/storage/sqlite"
)

const maxPromptCorrections = 20

// Submit runs one submission through classification and persistence. It
// returns the created record and the category menu shown to the user; the
// menu order is the store's select options order from the same read that
// constrained classification.
func (d *Dispatcher) Submit(ctx context.Context, conv string, sub domain.Submission) (domain.Record, []string, error) {
	if sub.Empty() {
		return domain.Record{}, nil, domain.ErrEmptyInput
	}
	content := sub.Content()

	categories, err := d.store.Categories(ctx)
	if err != nil {
		return domain.Record{}, nil, &domain.StoreReadError{Op: "categories", Err: err}
	}

	pageContext := ""
	if len(sub.URLs) > 0 {
		pc, err := d.fetcher.PageContext(ctx, sub.URLs[0])
		if err != nil {
			log.Printf("page context unavailable url=%s err=%v", sub.URLs[0], err)
		} else {
			pageContext = pc
		}
	}

	result, err := d.classifier.Classify(ctx, llm.Request{
		Content:     content,
		PageContext: pageContext,
		Caption:     sub.Caption,
		Categories:  categories,
		NeedTitle:   sub.NeedTitle(),
		Corrections: d.recentCorrections(),
	})
	if err != nil {
		return domain.Record{}, nil, err
	}

	title := sub.Caption
	if title == "" {
		title = result.Title
	}
	rec := domain.Record{
		Title:     title,
		Category:  result.Category,
		AddedTime: time.Now().UTC(),
		Content:   content,
	}
	id, err := d.store.Create(ctx, rec)
	if err != nil {
		return domain.Record{}, nil, &domain.StoreWriteError{Op: "create", Err: err}
	}
	rec.ID = id

	d.journalSavedRecord(domain.SavedRecord{
		RecordID:        id,
		Title:           rec.Title,
		Category:        rec.Category,
		Content:         content,
		ConversationKey: conv,
		Model:           d.model,
	})
	log.Printf("record saved conv=%s title=%q category=%s", conv, rec.Title, rec.Category)
	return rec, categories, nil
}

// applyCorrection writes a resolved correction to the store. The pending was
// already retired by Resolve; a failure here is reported to the user but the
// selection is not retried.
func (d *Dispatcher) applyCorrection(ctx context.Context, conv string, res pending.Resolution, ch ChannelMessenger) {
	categories, err := d.store.Categories(ctx)
	if err != nil {
		log.Printf("correction categories read failed conv=%s: %v", conv, err)
		d.send(ctx, ch, conv, userErrorMessage(&domain.StoreReadError{Op: "categories", Err: err}))
		return
	}
	// The menu label must still exist: the select options may have been
	// edited since the confirmation was shown.
	if !containsLabel(categories, res.ToCategory) {
		log.Printf("correction target category gone conv=%s category=%q", conv, res.ToCategory)
		d.send(ctx, ch, conv, userErrorMessage(&domain.InvalidCategoryError{Category: res.ToCategory, Allowed: categories}))
		return
	}

	if err := d.store.UpdateCategory(ctx, res.RecordID, res.ToCategory); err != nil {
		log.Printf("category update failed conv=%s record=%s: %v", conv, res.RecordID, err)
		d.send(ctx, ch, conv, userErrorMessage(&domain.StoreWriteError{Op: "update_category", Err: err}))
		return
	}

	d.journalCorrection(domain.CategoryCorrection{
		RecordID:          res.RecordID,
		Title:             res.Title,
		OriginalCategory:  res.FromCategory,
		CorrectedCategory: res.ToCategory,
	})
	log.Printf("category corrected conv=%s record=%s from=%s to=%s", conv, res.RecordID, res.FromCategory, res.ToCategory)
	d.send(ctx, ch, conv, correctionAppliedMessage(res))
}

// recentCorrections loads steering examples for the classifier prompt.
// Journal read failures degrade to no examples.
func (d *Dispatcher) recentCorrections() []domain.CategoryCorrection {
	if d.db == nil {
		return nil
	}
	corrections, err := sqlite.RecentCorrections(d.db, maxPromptCorrections)
	if err != nil {
		log.Printf("journal corrections read failed (non-fatal): %v", err)
		return nil
	}
	return corrections
}

func (d *Dispatcher) journalSavedRecord(r domain.SavedRecord) {
	if d.db == nil {
		return
	}
	if err := sqlite.InsertSavedRecord(d.db, r); err != nil {
		log.Printf("journal record write failed (non-fatal) record=%s: %v", r.RecordID, err)
	}
}

func (d *Dispatcher) journalCorrection(c domain.CategoryCorrection) {
	if d.db == nil {
		return
	}
	if err := sqlite.InsertCategoryCorrection(d.db, c); err != nil {
		log.Printf("journal correction write failed (non-fatal) record=%s: %v", c.RecordID, err)
	}
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
