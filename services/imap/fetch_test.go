package imap

import (
	"bytes"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMessage(body string) map[*goimap.BodySectionName]goimap.Literal {
	section, _ := goimap.ParseBodySectionName("BODY[]")
	return map[*goimap.BodySectionName]goimap.Literal{
		section: bytes.NewBufferString(body),
	}
}

func TestBuildEmail(t *testing.T) {
	sentAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	t.Run("builds a full record from a plain text message", func(t *testing.T) {
		raw := "From: Jane Doe <jane@example.com>\r\n" +
			"To: sales@acme.com\r\n" +
			"Subject: Quick question\r\n" +
			"Content-Type: text/plain\r\n" +
			"\r\n" +
			"Hello, do you have time this week?\r\n"

		msg := &goimap.Message{
			Uid:   42,
			Flags: []string{goimap.SeenFlag},
			Envelope: &goimap.Envelope{
				Date:      sentAt,
				Subject:   "Quick question",
				MessageId: "<msg-1@example.com>",
				From: []*goimap.Address{
					{PersonalName: "Jane Doe", MailboxName: "jane", HostName: "example.com"},
				},
				To: []*goimap.Address{
					{MailboxName: "sales", HostName: "acme.com"},
				},
			},
			Body: rawMessage(raw),
		}

		email := buildEmail("acc1", "INBOX", msg)

		assert.Equal(t, "acc1-INBOX-42", email.ID)
		assert.Equal(t, "acc1", email.AccountID)
		assert.Equal(t, "INBOX", email.Folder)
		assert.Equal(t, uint32(42), email.ImapUID)
		assert.Equal(t, "Quick question", email.Subject)
		assert.Equal(t, "msg-1@example.com", email.MessageID)
		assert.Equal(t, "jane@example.com", email.FromAddress)
		assert.Equal(t, "Jane Doe", email.FromName)
		assert.Equal(t, []string{"sales@acme.com"}, []string(email.ToAddresses))
		require.NotNil(t, email.SentAt)
		assert.Equal(t, sentAt, *email.SentAt)
		require.NotNil(t, email.ReceivedAt)
		assert.Contains(t, email.BodyText, "Hello, do you have time this week?")
		assert.Empty(t, email.ParseWarning)
		assert.False(t, email.HasAttachment)
	})

	t.Run("missing body degrades to a partial record", func(t *testing.T) {
		msg := &goimap.Message{
			Uid: 7,
			Envelope: &goimap.Envelope{
				Subject: "No body",
				From: []*goimap.Address{
					{MailboxName: "jane", HostName: "example.com"},
				},
			},
		}

		email := buildEmail("acc1", "INBOX", msg)

		assert.Equal(t, "acc1-INBOX-7", email.ID)
		assert.Equal(t, "No body", email.Subject)
		assert.Equal(t, "jane@example.com", email.FromAddress)
		assert.NotEmpty(t, email.ParseWarning)
		assert.Empty(t, email.BodyText)
	})

	t.Run("html only message still gets plain text", func(t *testing.T) {
		raw := "From: jane@example.com\r\n" +
			"Subject: Newsletter\r\n" +
			"Content-Type: text/html\r\n" +
			"\r\n" +
			"<html><body><style>p{color:red}</style><p>Big sale</p><p>this week</p></body></html>\r\n"

		msg := &goimap.Message{
			Uid:      9,
			Envelope: &goimap.Envelope{Subject: "Newsletter"},
			Body:     rawMessage(raw),
		}

		email := buildEmail("acc1", "INBOX", msg)

		assert.NotEmpty(t, email.BodyHTML)
		assert.Contains(t, email.BodyText, "Big sale")
		assert.NotContains(t, email.BodyText, "color:red")
	})

	t.Run("references are split out of in-reply-to", func(t *testing.T) {
		msg := &goimap.Message{
			Uid: 11,
			Envelope: &goimap.Envelope{
				Subject:   "Re: thread",
				MessageId: "<msg-3@example.com>",
				InReplyTo: "<msg-1@example.com> <msg-2@example.com>",
			},
		}

		email := buildEmail("acc1", "INBOX", msg)

		assert.Equal(t, []string{"msg-1@example.com", "msg-2@example.com"}, []string(email.References))
	})

	t.Run("invalid recipient addresses are dropped", func(t *testing.T) {
		msg := &goimap.Message{
			Uid: 12,
			Envelope: &goimap.Envelope{
				To: []*goimap.Address{
					{MailboxName: "sales", HostName: "acme.com"},
					{MailboxName: "undisclosed-recipients", HostName: ""},
				},
			},
		}

		email := buildEmail("acc1", "INBOX", msg)

		assert.Equal(t, []string{"sales@acme.com"}, []string(email.ToAddresses))
	})

	t.Run("duplicate recipient addresses collapse to one", func(t *testing.T) {
		msg := &goimap.Message{
			Uid: 13,
			Envelope: &goimap.Envelope{
				To: []*goimap.Address{
					{MailboxName: "sales", HostName: "acme.com"},
					{MailboxName: "sales", HostName: "acme.com"},
					{MailboxName: "billing", HostName: "acme.com"},
				},
			},
		}

		email := buildEmail("acc1", "INBOX", msg)

		assert.Equal(t, []string{"sales@acme.com", "billing@acme.com"}, []string(email.ToAddresses))
	})
}

func TestHtmlToText(t *testing.T) {
	text := htmlToText("<div><script>alert(1)</script><p>Hello</p>\n<p>world</p></div>")
	assert.Equal(t, "Hello world", text)
}
