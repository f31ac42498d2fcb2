package geminifetcher

import (
	"context"
	"errors"
	"net/url"

	"github.com/a-h/gemini"
	"go.uber.org/zap"
)

var errNoCertificate = errors.New("server presented no certificate")

// tofuTransport trusts a server certificate the first time it is seen and
// pins it for the life of the client.
type tofuTransport struct {
	client *gemini.Client
	logger *zap.Logger
}

func (t *tofuTransport) Do(ctx context.Context, u *url.URL) (rawResponse, error) {
	resp, certs, _, ok, err := t.client.RequestURL(ctx, u)
	if err != nil {
		return rawResponse{}, err
	}
	if !ok {
		if len(certs) == 0 {
			return rawResponse{}, errNoCertificate
		}
		t.logger.Debug("pinning server certificate", zap.String("host", u.Host))
		t.client.AddServerCertificate(u.Host, certs[0])
		resp, _, _, ok, err = t.client.RequestURL(ctx, u)
		if err != nil {
			return rawResponse{}, err
		}
		if !ok {
			return rawResponse{}, errNoCertificate
		}
	}
	return rawResponse{
		code: string(resp.Header.Code),
		meta: resp.Header.Meta,
		body: resp.Body,
	}, nil
}
