package flows

import (
	"context"

	"github.com/MrEthical07/goAuthClient/api"
)

// RegisterFailureKind classifies registration failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalid
	RegisterFailureRequest
)

// RegisterDeps captures registration flow dependencies.
type RegisterDeps struct {
	Validate func(any) error
	Post     PostFunc
}

// RegisterResult carries the created user or failure metadata.
type RegisterResult[U any] struct {
	Failure RegisterFailureKind
	Err     error
	User    U
}

// RunRegister validates the form locally and only then posts it. A form that
// fails validation never reaches the network.
func RunRegister[U any](ctx context.Context, form any, deps RegisterDeps) RegisterResult[U] {
	if deps.Validate != nil {
		if err := deps.Validate(form); err != nil {
			return RegisterResult[U]{Failure: RegisterFailureInvalid, Err: err}
		}
	}

	var user U
	if err := deps.Post(ctx, api.EndpointRegister, form, &user); err != nil {
		return RegisterResult[U]{Failure: RegisterFailureRequest, Err: err}
	}
	return RegisterResult[U]{User: user}
}
