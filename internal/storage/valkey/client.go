// Package valkeystore implements the storage ports on top of Valkey. Entities
// are JSON documents in string keys; secondary indexes are sets and lists.
// Message history lives in per-room lists, so RPUSH gives the atomic
// upsert-and-append the send paths rely on.
package valkeystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

// Connect dials Valkey at addr and verifies connectivity with a ping.
func Connect(ctx context.Context, addr, password string) (valkey.Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey: new client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey: ping: %w", err)
	}
	return client, nil
}

func marshalDoc(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("valkey: marshal document: %w", err)
	}
	return string(raw), nil
}

func unmarshalDoc(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("valkey: unmarshal document: %w", err)
	}
	return nil
}
