package service

import (
	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/iliyamo/merchant-inventory/internal/repository"
)

// Principal is the authenticated user acting on a request. The HTTP layer
// builds it from the access token and passes it in explicitly.
type Principal struct {
	UserID uint64
	Role   string
}

// Authorizer decides whether principal may record sales for merchant.
type Authorizer interface {
	Authorize(principal Principal, merchant model.Merchant) error
}

// AuthorizerFunc adapts a plain function to Authorizer.
type AuthorizerFunc func(principal Principal, merchant model.Merchant) error

func (f AuthorizerFunc) Authorize(p Principal, m model.Merchant) error { return f(p, m) }

// KeeperAuthorizer only lets the merchant's designated keeper sell.
var KeeperAuthorizer = AuthorizerFunc(func(p Principal, m model.Merchant) error {
	if p.UserID == 0 || p.UserID != m.KeeperID {
		return invalid("authorization", repository.ErrUnauthorized,
			"Unauthorized: You can only process transactions for your assigned merchant.")
	}
	return nil
})
