package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

func NewESClient(ctx context.Context, url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch: info: %s: %s", res.Status(), body)
	}
	return client, nil
}

// AuditIndexer writes redacted events into an Elasticsearch index.
type AuditIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewAuditIndexer(es *elasticsearch.Client, index string) *AuditIndexer {
	return &AuditIndexer{es: es, index: index}
}

func (a *AuditIndexer) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e.Redacted())
	if err != nil {
		return fmt.Errorf("elasticsearch: marshal event: %w", err)
	}

	res, err := a.es.Index(
		a.index,
		bytes.NewReader(body),
		a.es.Index.WithDocumentID(e.ID),
		a.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index %s: %w", a.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: index %s: %s: %s", a.index, res.Status(), msg)
	}
	return nil
}
