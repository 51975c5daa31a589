package imap

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	goimap "github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/lib/pq"

	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/utils"
)

// fetchItems is the set of message attributes requested on every fetch.
var fetchItems = []goimap.FetchItem{
	goimap.FetchEnvelope,
	goimap.FetchFlags,
	"BODY.PEEK[]",
	goimap.FetchUid,
}

// buildEmail turns a raw IMAP message into a normalized record. Envelope
// data always survives; a MIME parse failure degrades to a partial record
// with ParseWarning set instead of dropping the message.
func buildEmail(accountID, folder string, msg *goimap.Message) *models.Email {
	receivedAt := utils.Now()
	email := &models.Email{
		AccountID:  accountID,
		Folder:     folder,
		ImapUID:    msg.Uid,
		ReceivedAt: &receivedAt,
	}
	email.ID = models.EmailID(accountID, folder, msg.Uid)

	processEnvelope(email, msg.Envelope)

	if len(msg.Flags) > 0 {
		email.Flags = pq.StringArray(msg.Flags)
	}

	raw := extractFullMessage(msg)
	if len(raw) == 0 {
		email.ParseWarning = "no message body returned by server"
		return email
	}

	parseBody(email, raw)
	return email
}

// processEnvelope copies envelope fields onto the record.
func processEnvelope(email *models.Email, envelope *goimap.Envelope) {
	if envelope == nil {
		return
	}

	if !envelope.Date.IsZero() {
		sentTime := envelope.Date
		email.SentAt = &sentTime
	}

	email.Subject = envelope.Subject
	email.InReplyTo = envelope.InReplyTo
	email.MessageID = utils.NormalizeMessageID(envelope.MessageId)

	// Many clients put References in the InReplyTo field separated by spaces
	if envelope.InReplyTo != "" {
		references := strings.Fields(envelope.InReplyTo)
		for i, ref := range references {
			references[i] = utils.NormalizeMessageID(ref)
		}
		email.References = pq.StringArray(references)
	}

	if len(envelope.From) > 0 {
		sender := envelope.From[0]
		email.FromName = sender.PersonalName
		email.FromAddress = utils.CleanEmailAddress(sender.Address())
	}

	email.ToAddresses = convertAddressesToStringArray(envelope.To)
	email.CcAddresses = convertAddressesToStringArray(envelope.Cc)

	envelopeMap := make(map[string]interface{})
	envelopeMap["date"] = envelope.Date
	envelopeMap["subject"] = envelope.Subject
	envelopeMap["message_id"] = envelope.MessageId
	envelopeMap["in_reply_to"] = envelope.InReplyTo
	envelopeMap["from"] = addressesToMap(envelope.From)
	envelopeMap["to"] = addressesToMap(envelope.To)
	envelopeMap["cc"] = addressesToMap(envelope.Cc)
	email.Envelope = models.JSONMap(envelopeMap)
}

// extractFullMessage pulls the full RFC 822 body out of the fetch response.
func extractFullMessage(msg *goimap.Message) []byte {
	var buffer bytes.Buffer

	for section, literal := range msg.Body {
		if len(section.Path) == 0 && section.Specifier == goimap.EntireSpecifier {
			data, err := io.ReadAll(literal)
			if err == nil {
				buffer.Write(data)
				break
			}
		}
	}

	return buffer.Bytes()
}

// parseBody parses the raw message with enmime and fills content fields.
// On parse failure the record keeps its envelope data and carries a
// ParseWarning instead.
func parseBody(email *models.Email, raw []byte) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		email.ParseWarning = err.Error()
		return
	}

	headers := make(map[string]interface{})
	for _, key := range envelope.GetHeaderKeys() {
		values := envelope.GetHeaderValues(key)
		if len(values) > 0 {
			headers[key] = values
		}
	}
	email.RawHeaders = models.JSONMap(headers)

	email.BodyText = envelope.Text
	email.BodyHTML = envelope.HTML

	if email.BodyText == "" && email.BodyHTML != "" {
		email.BodyText = htmlToText(email.BodyHTML)
	}

	if len(envelope.Attachments) > 0 || len(envelope.Inlines) > 0 {
		email.HasAttachment = true
	}
}

// htmlToText strips markup from an HTML-only body so classification and
// search always have plain text to work with.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()
	text := doc.Text()

	// Collapse runs of whitespace left behind by block elements
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}

func convertAddressesToStringArray(addresses []*goimap.Address) pq.StringArray {
	if len(addresses) == 0 {
		return pq.StringArray{}
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if addr.MailboxName == "" || addr.HostName == "" {
			continue
		}
		emailAddr := addr.Address()
		if utils.IsValidEmailSyntax(emailAddr) {
			result = append(result, utils.CleanEmailAddress(emailAddr))
		}
	}

	return pq.StringArray(utils.UniqueEmails(result))
}

func addressesToMap(addresses []*goimap.Address) []map[string]string {
	result := make([]map[string]string, 0, len(addresses))

	for _, addr := range addresses {
		result = append(result, map[string]string{
			"name":    addr.PersonalName,
			"address": addr.Address(),
		})
	}

	return result
}
