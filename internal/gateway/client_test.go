package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solmercado/storefront-core/internal/cart"
	"github.com/solmercado/storefront-core/pkg/config"
	pkgerrors "github.com/solmercado/storefront-core/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.GatewayConfig{BaseURL: server.URL, SessionHeader: "X-Session-Id"})
	require.NoError(t, err)
	return client
}

func TestFetchCartMapsPayload(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/cart", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"2","product":{"id":"2","name":"Cord","price":"5"},"quantity":3},
			{"id":"1","product":{"id":"1","name":"Lamp","price":"10","salePrice":"8"},"quantity":2}
		]}`))
	}))

	lines, err := client.FetchCart(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "2", lines[0].ProductID)
	require.Equal(t, 3, lines[0].Quantity)
	require.True(t, lines[1].Product.SalePrice.Equal(lines[1].Product.EffectivePrice()))
}

func TestFetchCartRequiresToken(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a token")
	}))

	_, err := client.FetchCart(context.Background(), " ")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestMergeCartSendsSessionHeader(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cart/merge", r.URL.Path)
		require.Equal(t, "s_1_abc", r.Header.Get("X-Session-Id"))
		_, _ = w.Write([]byte(`{"items":[{"id":"7","product":{"id":"7","price":"1"},"quantity":1}]}`))
	}))

	lines, err := client.MergeCart(context.Background(), "tok", "s_1_abc")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "7", lines[0].ProductID)
}

func TestMergeCartSurfacesBackendFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "merge unavailable", http.StatusServiceUnavailable)
	}))

	_, err := client.MergeCart(context.Background(), "tok", "s_1_abc")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestFetchCartRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"id":"","quantity":0}]}`))
	}))

	_, err := client.FetchCart(context.Background(), "tok")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestPushMutationRoutes(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := context.Background()
	ident := Identity{SessionID: "s_1_abc"}

	err := client.PushMutation(ctx, Mutation{Op: OpAdd, Product: cart.ProductSnapshot{ID: "5"}, Quantity: 2}, ident)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/cart/items", gotPath)

	err = client.PushMutation(ctx, Mutation{Op: OpUpdate, ProductID: "5", Quantity: 4}, ident)
	require.NoError(t, err)
	require.Equal(t, http.MethodPatch, gotMethod)
	require.Equal(t, "/cart/items/5", gotPath)

	err = client.PushMutation(ctx, Mutation{Op: OpRemove, ProductID: "5"}, ident)
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/cart/items/5", gotPath)
}

func TestPushMutationRequiresIdentity(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without identity")
	}))

	err := client.PushMutation(context.Background(), Mutation{Op: OpRemove, ProductID: "5"}, Identity{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
