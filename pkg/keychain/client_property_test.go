package keychain_test

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/systmms/keychain/internal/vault/memory"
	"github.com/systmms/keychain/pkg/keychain"
)

func drawQuery(t *rapid.T) keychain.Attributes {
	account := rapid.StringMatching(`[a-z0-9._-]{1,16}`).Draw(t, "account")
	if rapid.Bool().Draw(t, "generic") {
		var gen []byte
		if rapid.Bool().Draw(t, "has_generic") {
			gen = rapid.SliceOfN(rapid.Byte(), 1, 8).Draw(t, "generic_bytes")
		}
		return keychain.GenericPasswordItem(account, gen)
	}
	return keychain.InternetPasswordItem(account)
}

// Property: a set payload is fetched back unchanged.
func TestPropertySetFetchRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		c := keychain.New(memory.New(), keychain.Config{Service: testService})

		query := drawQuery(t)
		payload := rapid.SliceOf(rapid.Byte()).Draw(t, "payload")

		if err := c.Set(ctx, payload, query, nil); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, err := c.Fetch(ctx, query)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if string(got) != string(payload) {
			t.Fatalf("fetched %q, set %q", got, payload)
		}
	})
}

// Property: after any sequence of sets on one item, exactly one item
// exists and it holds the last payload.
func TestPropertyLastWriteWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		v := memory.New()
		c := keychain.New(v, keychain.Config{Service: testService})

		query := drawQuery(t)
		writes := rapid.SliceOfN(rapid.SliceOf(rapid.Byte()), 1, 6).Draw(t, "writes")
		tiers := []keychain.Accessibility{
			keychain.AccessibleWhenUnlocked,
			keychain.AccessibleAfterFirstUnlock,
			keychain.AccessibleAlways,
		}

		for i, payload := range writes {
			var ac *keychain.AccessControl
			if rapid.Bool().Draw(t, "with_acl") {
				ac = &keychain.AccessControl{Protection: rapid.SampledFrom(tiers).Draw(t, "tier")}
			}
			if err := c.Set(ctx, payload, query, ac); err != nil {
				t.Fatalf("set #%d: %v", i, err)
			}
		}

		all, status := v.CopyMatching(ctx, keychain.Dictionary{
			keychain.KeyClass:            query.Class.Native(),
			keychain.KeyService:          testService,
			keychain.KeyAccount:          *query.Account,
			keychain.KeyMatchLimit:       keychain.MatchLimitAll.Native(),
			keychain.KeyReturnAttributes: true,
		})
		if status != keychain.StatusSuccess || len(all) != 1 {
			t.Fatalf("expected one item, got %d (status %d)", len(all), status)
		}

		got, err := c.Fetch(ctx, query)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if last := writes[len(writes)-1]; string(got) != string(last) {
			t.Fatalf("fetched %q, last write %q", got, last)
		}
	})
}

// Property: delete is idempotent and leaves nothing behind.
func TestPropertyDeleteIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		c := keychain.New(memory.New(), keychain.Config{Service: testService})

		query := drawQuery(t)
		if rapid.Bool().Draw(t, "present") {
			if err := c.Set(ctx, []byte("x"), query, nil); err != nil {
				t.Fatalf("set: %v", err)
			}
		}

		times := rapid.IntRange(1, 3).Draw(t, "deletes")
		for i := 0; i < times; i++ {
			if err := c.Delete(ctx, query); err != nil {
				t.Fatalf("delete #%d: %v", i, err)
			}
		}
		found, err := c.Exists(ctx, query)
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if found {
			t.Fatalf("item still exists after delete")
		}
	})
}
