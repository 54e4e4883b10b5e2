// Package cache stores rendered read responses. Keys carry a per-resource
// version; a write bumps the written resource and the resources that embed
// it, so their older entries are no longer hit and simply expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Cache is implemented by Redis and Memory.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Version returns the current version of resource, 0 before any write.
	Version(ctx context.Context, resource string) (int64, error)
	// Bump invalidates every entry of resource.
	Bump(ctx context.Context, resource string) error
}

// Key builds the entry key of a read request.
func Key(resource string, version int64, route, id string, params map[string][]string) (string, error) {
	payload := map[string]any{
		"route":  route,
		"id":     id,
		"params": params,
	}
	data, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "crud:" + resource + ":v" + strconv.FormatInt(version, 10) + ":" + hex.EncodeToString(sum[:]), nil
}

func versionKey(resource string) string {
	return "crud:version:" + resource
}

// canonicalJSON encodes value with sorted object keys so that equal
// queries map to the same key.
func canonicalJSON(value any) ([]byte, error) {
	var b strings.Builder
	if err := encodeCanonical(&b, value); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encodeCanonical(b *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case []string:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(item)
			b.Write(enc)
		}
		b.WriteByte(']')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string][]string:
		m := make(map[string]any, len(v))
		for k, vals := range v {
			m[k] = vals
		}
		return encodeCanonical(b, m)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encKey, _ := json.Marshal(k)
			b.Write(encKey)
			b.WriteByte(':')
			if err := encodeCanonical(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(enc)
	}
	return nil
}
