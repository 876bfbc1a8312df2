package course

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/campus-tools/gradewire/internal/qualtrics"
)

type fakeDirectory struct {
	lists    []qualtrics.MailingList
	contacts map[string][]qualtrics.Contact

	nextContact  int
	createdLists []string
	added        map[string][]qualtrics.Contact
	deleted      map[string][]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		contacts: make(map[string][]qualtrics.Contact),
		added:    make(map[string][]qualtrics.Contact),
		deleted:  make(map[string][]string),
	}
}

func (f *fakeDirectory) LibraryID(ctx context.Context) (string, error) {
	return "UR_lib", nil
}

func (f *fakeDirectory) MailingLists(ctx context.Context) ([]qualtrics.MailingList, error) {
	return f.lists, nil
}

func (f *fakeDirectory) CreateMailingList(ctx context.Context, libraryID, name string) (string, error) {
	if libraryID != "UR_lib" {
		return "", fmt.Errorf("unknown library %q", libraryID)
	}
	id := fmt.Sprintf("CG_%d", len(f.createdLists)+1)
	f.createdLists = append(f.createdLists, name)
	f.lists = append(f.lists, qualtrics.MailingList{ID: id, Name: name, LibraryID: libraryID})
	return id, nil
}

func (f *fakeDirectory) Contacts(ctx context.Context, mailingListID string) ([]qualtrics.Contact, error) {
	return f.contacts[mailingListID], nil
}

func (f *fakeDirectory) AddContact(ctx context.Context, mailingListID string, c qualtrics.Contact) (string, error) {
	f.nextContact++
	c.ID = fmt.Sprintf("MLRP_%d", f.nextContact)
	f.contacts[mailingListID] = append(f.contacts[mailingListID], c)
	f.added[mailingListID] = append(f.added[mailingListID], c)
	return c.ID, nil
}

func (f *fakeDirectory) DeleteContact(ctx context.Context, mailingListID, contactID string) error {
	f.deleted[mailingListID] = append(f.deleted[mailingListID], contactID)
	kept := f.contacts[mailingListID][:0]
	for _, c := range f.contacts[mailingListID] {
		if c.ID != contactID {
			kept = append(kept, c)
		}
	}
	f.contacts[mailingListID] = kept
	return nil
}

func audienceRoster() Roster {
	return Roster{
		{InternalID: 101, ExternalID: "asmith", DisplayName: "Smith, Alice"},
		{InternalID: 102, ExternalID: "bjones", DisplayName: "Jones, Bob"},
	}
}

func TestSyncCreatesList(t *testing.T) {
	dir := newFakeDirectory()
	syncer := &AudienceSyncer{Dir: dir, EmailDomain: "example.edu"}

	h, err := syncer.Sync(context.Background(), "ASTRO 1101", audienceRoster(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if h.MailingListID != "CG_1" || h.Added != 2 || h.Kept != 0 || h.Removed != 0 {
		t.Errorf("handle = %+v", h)
	}
	if len(dir.createdLists) != 1 || dir.createdLists[0] != "ASTRO 1101" {
		t.Errorf("lists created = %v", dir.createdLists)
	}
	added := dir.added["CG_1"]
	if len(added) != 2 {
		t.Fatalf("added = %+v", added)
	}
	if added[0].Email != "asmith@example.edu" || added[0].FirstName != "Alice" || added[0].LastName != "Smith" {
		t.Errorf("first contact = %+v", added[0])
	}
}

func TestSyncIdempotent(t *testing.T) {
	dir := newFakeDirectory()
	syncer := &AudienceSyncer{Dir: dir, EmailDomain: "example.edu"}

	if _, err := syncer.Sync(context.Background(), "ASTRO 1101", audienceRoster(), false); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	h, err := syncer.Sync(context.Background(), "ASTRO 1101", audienceRoster(), false)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if h.Added != 0 || h.Kept != 2 {
		t.Errorf("second sync handle = %+v", h)
	}
	if len(dir.createdLists) != 1 {
		t.Errorf("list re-created: %v", dir.createdLists)
	}
}

func TestSyncPrune(t *testing.T) {
	dir := newFakeDirectory()
	dir.lists = []qualtrics.MailingList{{ID: "CG_9", Name: "ASTRO 1101"}}
	dir.contacts["CG_9"] = []qualtrics.Contact{
		{ID: "MLRP_a", FirstName: "Alice", LastName: "Smith", Email: "asmith@example.edu"},
		{ID: "MLRP_x", FirstName: "Dana", LastName: "Dropped", Email: "ddropped@example.edu"},
	}
	syncer := &AudienceSyncer{Dir: dir, EmailDomain: "example.edu"}

	// Without prune the stale contact stays.
	h, err := syncer.Sync(context.Background(), "ASTRO 1101", audienceRoster(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if h.Added != 1 || h.Kept != 1 || h.Removed != 0 {
		t.Errorf("no-prune handle = %+v", h)
	}
	if len(dir.deleted["CG_9"]) != 0 {
		t.Errorf("contacts deleted without prune: %v", dir.deleted)
	}

	h, err = syncer.Sync(context.Background(), "ASTRO 1101", audienceRoster(), true)
	if err != nil {
		t.Fatalf("prune Sync: %v", err)
	}
	if h.Removed != 1 {
		t.Errorf("prune handle = %+v", h)
	}
	if len(dir.deleted["CG_9"]) != 1 || dir.deleted["CG_9"][0] != "MLRP_x" {
		t.Errorf("deleted = %v", dir.deleted)
	}
}

func TestSyncNoDomain(t *testing.T) {
	syncer := &AudienceSyncer{Dir: newFakeDirectory()}
	_, err := syncer.Sync(context.Background(), "ASTRO 1101", audienceRoster(), false)
	if err == nil {
		t.Fatal("expected error without an email domain")
	}
}

func TestSyncAmbiguousList(t *testing.T) {
	dir := newFakeDirectory()
	dir.lists = []qualtrics.MailingList{
		{ID: "CG_1", Name: "ASTRO 1101"},
		{ID: "CG_2", Name: "ASTRO 1101"},
	}
	syncer := &AudienceSyncer{Dir: dir, EmailDomain: "example.edu"}

	_, err := syncer.Sync(context.Background(), "ASTRO 1101", audienceRoster(), false)
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) || lookupErr.Matches != 2 {
		t.Errorf("expected ambiguous LookupError, got %v", err)
	}
}
