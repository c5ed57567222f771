package membersync

import (
	"context"

	"go.uber.org/zap"

	"lesverein.de/campai-connector/internal/campai"
)

// ContactFetcher returns one page of contacts. An empty page signals the
// end of the collection.
type ContactFetcher func(ctx context.Context, page campai.Page) ([]campai.Contact, error)

// FetchContacts drains all pages from fetch and deduplicates the result by
// e-mail address:
//
//   - contacts that are not natural persons, and contacts without an
//     e-mail address, are excluded entirely;
//   - on an e-mail collision the contact with the lower membership number
//     wins (the earlier joiner); if either number is absent the contact
//     seen first is kept and the collision is logged as a warning.
//
// The returned slice preserves first-seen order, so the outcome is
// deterministic for a deterministic page order.
func FetchContacts(ctx context.Context, fetch ContactFetcher, pageLimit int, log *zap.Logger) ([]campai.Contact, error) {
	if pageLimit <= 0 {
		pageLimit = campai.DefaultPageLimit
	}

	byEmail := make(map[string]int)
	var contacts []campai.Contact

	skip := 0
	for {
		page, err := fetch(ctx, campai.Page{Limit: pageLimit, Skip: skip})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, contact := range page {
			if !contact.IsNaturalPerson() {
				continue
			}
			email := contact.Email()
			if email == "" {
				continue
			}

			idx, seen := byEmail[email]
			if !seen {
				byEmail[email] = len(contacts)
				contacts = append(contacts, contact)
				continue
			}

			existing := contacts[idx]
			currentNum := contact.Membership.NumberSort
			existingNum := existing.Membership.NumberSort

			if currentNum == nil || existingNum == nil {
				log.Warn("contacts share an e-mail address but cannot be compared, keeping the contact seen first",
					zap.String("contact", contact.ID),
					zap.String("existingContact", existing.ID),
					zap.String("email", email))
				continue
			}
			if *currentNum > *existingNum {
				continue
			}
			contacts[idx] = contact
		}

		skip += pageLimit
	}

	return contacts, nil
}
