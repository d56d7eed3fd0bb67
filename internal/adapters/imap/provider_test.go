package imap

import (
	"testing"

	imap "github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/mail-sorter/internal/core"
)

func TestRefRoundTrip(t *testing.T) {
	id := refID("Work/Projects", 42)
	assert.Equal(t, "Work/Projects/42", id)

	mailbox, uid, err := parseRef(id)
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects", mailbox)
	assert.Equal(t, imap.UID(42), uid)

	for _, bad := range []string{"", "INBOX", "INBOX/", "/5", "INBOX/x", "INBOX/0"} {
		_, _, err := parseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewest(t *testing.T) {
	uids := []imap.UID{3, 10, 7, 1}
	assert.Equal(t, []imap.UID{10, 7}, newest(uids, 2))
	assert.Equal(t, []imap.UID{10, 7, 3, 1}, newest(uids, 0))
	assert.Equal(t, []imap.UID{3, 10, 7, 1}, uids)
}

func TestGroupRefs(t *testing.T) {
	groups := groupRefs([]core.MessageRef{
		{ID: "INBOX/1"},
		{ID: "INBOX/4"},
		{ID: "News/2"},
		{ID: "bogus"},
	})
	assert.Equal(t, map[string][]imap.UID{
		"INBOX": {1, 4},
		"News":  {2},
	}, groups)
}

func TestIsSystem(t *testing.T) {
	p := &Provider{inbox: "INBOX"}
	assert.True(t, p.isSystem("inbox", nil))
	assert.True(t, p.isSystem("Papierkorb", []imap.MailboxAttr{imap.MailboxAttrTrash}))
	assert.False(t, p.isSystem("Work", []imap.MailboxAttr{imap.MailboxAttrHasNoChildren}))
}

func TestFormatFrom(t *testing.T) {
	assert.Equal(t, "", formatFrom(nil))
	assert.Equal(t, "a@b.com", formatFrom([]imap.Address{{Mailbox: "a", Host: "b.com"}}))
	assert.Equal(t, "Alice <a@b.com>", formatFrom([]imap.Address{{Name: "Alice", Mailbox: "a", Host: "b.com"}}))
}
