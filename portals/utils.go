package portals

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Marketplace amounts are in nanoTON.
const tonDecimals = 9

// FormatAmount renders a smallest-unit amount as a decimal string.
func FormatAmount(amount int64) string {
	return decimal.New(amount, -tonDecimals).String()
}

// formatOutcome is the chat message for outcomes worth pushing.
func formatOutcome(out Outcome) string {
	switch out.Code {
	case OutcomeBought:
		content := fmt.Sprintf(
			"Bought %q for %s TON\nListing: %s\nCollection: %s",
			out.Listing.Name, FormatAmount(out.FinalPrice), out.Listing.ID, out.Listing.CollectionID,
		)
		if out.Listing.BundleID != "" {
			content += fmt.Sprintf("\nBundle: %s", out.Listing.BundleID)
		}
		return content
	case OutcomeTransportFailure:
		return fmt.Sprintf(
			"Purchase of %q (listing %s, %s TON) is in an unknown state: %s\nCheck the wallet before restarting.",
			out.Listing.Name, out.Listing.ID, FormatAmount(out.Listing.Price), out.Err,
		)
	}
	return ""
}
