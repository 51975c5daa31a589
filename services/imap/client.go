package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/oneboxlabs/onebox/internal/enum"
	er "github.com/oneboxlabs/onebox/internal/errors"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
)

// connectToIMAPServer establishes a connection, checks capabilities and
// authenticates. Callers own the returned client.
func (s *IMAPService) connectToIMAPServer(ctx context.Context, account models.Account) (*client.Client, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.connectToIMAPServer")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if account.Security == enum.EmailSecurityNone {
		c, err = client.DialWithDialer(dialer, account.Address())
	} else {
		tlsConfig := &tls.Config{
			ServerName: account.Host,
		}
		c, err = client.DialWithDialerTLS(dialer, account.Address(), tlsConfig)
	}

	if err != nil {
		err := fmt.Errorf("%w: %v", er.ErrConnectionFailed, err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	// Check capabilities
	c.Timeout = 30 * time.Second
	caps, err := c.Capability()
	if err != nil {
		c.Logout()
		err := fmt.Errorf("capability error: %w", err)
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.LogKV("capabilities", fmt.Sprintf("%v", caps))

	// Login
	err = c.Login(account.User, account.Password)
	if err != nil {
		c.Logout()
		err := fmt.Errorf("login error: %w", err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	// Reset timeout
	c.Timeout = 0

	s.log.Infof("[%s] Successfully connected to %s", account.ID, account.Address())
	return c, nil
}

// listFolders lists all available folders on the server.
func (s *IMAPService) listFolders(ctx context.Context, c *client.Client, accountID string) ([]FolderInfo, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPService.listFolders")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	c.Timeout = 30 * time.Second
	mailboxes := make(chan *goimap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var infos []FolderInfo
	for m := range mailboxes {
		infos = append(infos, FolderInfo{Name: m.Name, Delimiter: m.Delimiter})
	}

	c.Timeout = 0
	err := <-done
	if err != nil {
		err = fmt.Errorf("error listing folders: %w", err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogKV("folders.count", len(infos))
	return infos, nil
}
