package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
	"github.com/ccccccarachen/content-collection-skill/internal/integrations/notion"
	"github.com/ccccccarachen/content-collection-skill/internal/pending"
)

const processingMessage = "⏳ Processing..."

func confirmationMessage(rec domain.Record, menu []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Saved to Notion\nTitle: %s\nCategory: %s", rec.Title, rec.Category)
	if len(menu) > 0 {
		sb.WriteString("\n\nWrong category? Reply with a number:")
		for i, label := range menu {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, label)
		}
	}
	return sb.String()
}

func correctionAppliedMessage(res pending.Resolution) string {
	return fmt.Sprintf("✅ Category updated to %s\nTitle: %s", res.ToCategory, res.Title)
}

// userErrorMessage maps an error to the one message the user sees for that
// failure kind. Provider responses stay in the logs.
func userErrorMessage(err error) string {
	var sel *domain.InvalidSelectionError
	if errors.As(err, &sel) {
		return fmt.Sprintf("❌ Pick a number between 1 and %d.", sel.MenuLen)
	}
	if errors.Is(err, domain.ErrEmptyInput) {
		return "❌ Nothing to save. Send a link or some text."
	}
	var cat *domain.InvalidCategoryError
	if errors.As(err, &cat) {
		return fmt.Sprintf("❌ Category %q is not in the Notion database. Adjust the Category select options and try again.", cat.Category)
	}
	var unavailable *domain.ClassifierUnavailableError
	if errors.As(err, &unavailable) {
		return "❌ Classification is unavailable right now. Try again in a moment."
	}
	var read *domain.StoreReadError
	if errors.As(err, &read) {
		return "❌ Couldn't read the Notion database.\n" + storeHint(err)
	}
	var write *domain.StoreWriteError
	if errors.As(err, &write) {
		if write.Op == "update_category" {
			return "❌ Failed to update the category:\n" + storeHint(err)
		}
		return "❌ Failed to save to Notion:\n" + storeHint(err)
	}
	return "❌ Error processing message. Check the bot logs for details."
}

func storeHint(err error) string {
	switch {
	case errors.Is(err, notion.ErrUnauthorized):
		return "The integration token was rejected or the database is not shared with the integration."
	case errors.Is(err, notion.ErrNotFound):
		return "The database or page was not found; check the database id."
	case errors.Is(err, notion.ErrSchema):
		return "The database is missing one of the Title / Category / Added Time / Content properties."
	default:
		return "Notion did not respond; try again in a moment."
	}
}
