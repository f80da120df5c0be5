package gateway

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/solmercado/storefront-core/internal/cart"
	pkgerrors "github.com/solmercado/storefront-core/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// MutationOp names the cart mutations the backend accepts.
type MutationOp string

const (
	OpAdd    MutationOp = "add"
	OpUpdate MutationOp = "update"
	OpRemove MutationOp = "remove"
)

// Mutation is a single local cart change proxied to the backend.
type Mutation struct {
	Op        MutationOp
	ProductID string
	Quantity  int
	Product   cart.ProductSnapshot
}

func (m Mutation) validate() error {
	switch m.Op {
	case OpAdd:
		if strings.TrimSpace(m.Product.ID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "product snapshot is required for add")
		}
		if m.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "add quantity must be at least one")
		}
	case OpUpdate:
		if strings.TrimSpace(m.ProductID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required for update")
		}
		if m.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "update quantity must be at least one")
		}
	case OpRemove:
		if strings.TrimSpace(m.ProductID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required for remove")
		}
	}
	return nil
}

// Identity carries whichever credential the caller has.
type Identity struct {
	AuthToken string
	SessionID string
}

func (i Identity) valid() bool {
	return strings.TrimSpace(i.AuthToken) != "" || strings.TrimSpace(i.SessionID) != ""
}

type addItemRequest struct {
	Product  cart.ProductSnapshot `json:"product"`
	Quantity int                  `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// cartPayload is the wire shape of the backend cart. It is validated
// before it is allowed to replace local state.
type cartPayload struct {
	Items []cartItemPayload `json:"items" validate:"dive"`
}

type cartItemPayload struct {
	ID       string               `json:"id" validate:"required"`
	Product  cart.ProductSnapshot `json:"product"`
	Quantity int                  `json:"quantity" validate:"gte=1"`
	AddedAt  time.Time            `json:"addedAt"`
}

func (p cartPayload) toLines() ([]cart.Line, error) {
	if err := validate.Struct(p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend returned an invalid cart payload")
	}
	lines := make([]cart.Line, 0, len(p.Items))
	for _, item := range p.Items {
		product := item.Product
		if product.ID == "" {
			product.ID = item.ID
		}
		lines = append(lines, cart.Line{
			ProductID: item.ID,
			Product:   product,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	return lines, nil
}
