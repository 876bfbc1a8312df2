package course

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campus-tools/gradewire/internal/qualtrics"
)

// Directory is the slice of the survey platform used for audience
// management: the library, mailing lists and contacts.
type Directory interface {
	LibraryID(ctx context.Context) (string, error)
	MailingLists(ctx context.Context) ([]qualtrics.MailingList, error)
	CreateMailingList(ctx context.Context, libraryID, name string) (string, error)
	Contacts(ctx context.Context, mailingListID string) ([]qualtrics.Contact, error)
	AddContact(ctx context.Context, mailingListID string, c qualtrics.Contact) (string, error)
	DeleteContact(ctx context.Context, mailingListID, contactID string) error
}

// AudienceHandle describes the mailing list after a sync.
type AudienceHandle struct {
	MailingListID string
	Name          string
	Added         int
	Removed       int
	Kept          int
}

// AudienceSyncer mirrors a roster onto a survey-platform mailing list.
type AudienceSyncer struct {
	Dir         Directory
	EmailDomain string
}

// Sync creates the mailing list named after the course if needed, then adds
// every roster student not yet on it. It never removes contacts unless prune
// is set, so students who drop the course stay on the list until a pruning
// sync; callers that need an exact mirror must ask for one. Syncing the same
// roster twice is a no-op the second time.
func (a *AudienceSyncer) Sync(ctx context.Context, name string, roster Roster, prune bool) (*AudienceHandle, error) {
	if a.EmailDomain == "" {
		return nil, fmt.Errorf("sync audience: no email domain configured")
	}

	listID, err := a.ensureList(ctx, name)
	if err != nil {
		return nil, err
	}
	existing, err := a.Dir.Contacts(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("sync audience: %w", err)
	}
	byEmail := make(map[string]qualtrics.Contact, len(existing))
	for _, c := range existing {
		byEmail[strings.ToLower(c.Email)] = c
	}

	h := &AudienceHandle{MailingListID: listID, Name: name}
	wanted := make(map[string]bool, len(roster))
	for _, s := range roster {
		email := s.Email(a.EmailDomain)
		wanted[email] = true
		if _, ok := byEmail[email]; ok {
			h.Kept++
			continue
		}
		first, last := s.NameParts()
		_, err := a.Dir.AddContact(ctx, listID, qualtrics.Contact{
			FirstName: first,
			LastName:  last,
			Email:     email,
		})
		if err != nil {
			return nil, fmt.Errorf("sync audience: add %s: %w", email, err)
		}
		h.Added++
	}

	if prune {
		for email, c := range byEmail {
			if wanted[email] {
				continue
			}
			if err := a.Dir.DeleteContact(ctx, listID, c.ID); err != nil {
				return nil, fmt.Errorf("sync audience: remove %s: %w", email, err)
			}
			h.Removed++
		}
	}

	slog.Info("audience synced", "list", name, "added", h.Added, "kept", h.Kept, "removed", h.Removed)
	return h, nil
}

// ensureList finds the mailing list by exact name or creates it in the user
// library. Duplicate list names are a LookupError.
func (a *AudienceSyncer) ensureList(ctx context.Context, name string) (string, error) {
	lists, err := a.Dir.MailingLists(ctx)
	if err != nil {
		return "", fmt.Errorf("sync audience: %w", err)
	}
	var matches []qualtrics.MailingList
	for _, l := range lists {
		if l.Name == name {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		libID, err := a.Dir.LibraryID(ctx)
		if err != nil {
			return "", fmt.Errorf("sync audience: %w", err)
		}
		id, err := a.Dir.CreateMailingList(ctx, libID, name)
		if err != nil {
			return "", fmt.Errorf("sync audience: %w", err)
		}
		slog.Info("mailing list created", "list", name, "id", id)
		return id, nil
	case 1:
		return matches[0].ID, nil
	default:
		return "", &LookupError{Resource: "mailing list", Name: name, Matches: len(matches)}
	}
}
