package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestSendListingPosted(t *testing.T) {
	fake := &fakeSender{}
	m := &SMTPMailer{sender: fake, from: "PropertyHub <no-reply@propertyhub.local>", publicURL: "https://propertyhub.example"}

	err := m.SendListingPosted(context.Background(), "owner@example.com", &domain.Listing{
		ID: "abc", Title: "Studio flat", Category: domain.CategoryRent, Price: "1200",
	})
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	msg := fake.sent[0]
	assert.Equal(t, []string{"owner@example.com"}, msg.GetHeader("To"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	body := buf.String()
	assert.Contains(t, body, "Studio flat")
	assert.Contains(t, body, "$1,200/mo")
	assert.Contains(t, body, "https://propertyhub.example/listings/abc")
}

func TestSendListingPosted_Errors(t *testing.T) {
	fake := &fakeSender{err: errors.New("smtp down")}
	m := &SMTPMailer{sender: fake}

	err := m.SendListingPosted(context.Background(), "", &domain.Listing{})
	assert.Error(t, err)
	assert.Empty(t, fake.sent)

	err = m.SendListingPosted(context.Background(), "a@b.c", &domain.Listing{Title: "x"})
	assert.ErrorContains(t, err, "smtp down")
}
