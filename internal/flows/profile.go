package flows

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/goAuthClient/api"
)

// ProfileFailureKind classifies profile flow failures for root-level mapping.
type ProfileFailureKind int

const (
	ProfileFailureNone ProfileFailureKind = iota
	ProfileFailureUnauthorized
	ProfileFailureRequest
)

// ProfileDeps captures profile flow dependencies.
type ProfileDeps struct {
	Get    GetFunc
	Patch  PostFunc
	Upload func(ctx context.Context, method, endpoint string, form api.Form, out any) error
}

// ProfileResult carries the loaded user or failure metadata.
type ProfileResult[U any] struct {
	Failure ProfileFailureKind
	Err     error
	User    U
	Message string
}

// RunLoadProfile fetches the current user. A 401 that survived the refresh
// pipeline is reported as ProfileFailureUnauthorized.
func RunLoadProfile[U any](ctx context.Context, deps ProfileDeps) ProfileResult[U] {
	var user U
	if err := deps.Get(ctx, api.EndpointProfile, nil, &user); err != nil {
		return ProfileResult[U]{Failure: profileFailure(err), Err: err}
	}
	return ProfileResult[U]{User: user}
}

type profileUpdateResponse[U any] struct {
	User    U      `json:"user"`
	Message string `json:"message"`
}

// ProfileUpdate is a profile change. Form is used instead of Body when a file
// is attached.
type ProfileUpdate struct {
	Body any
	Form *api.Form
}

// RunUpdateProfile sends a JSON PATCH, or a multipart PATCH when a file is
// attached, and returns the user the backend echoes back.
func RunUpdateProfile[U any](ctx context.Context, in ProfileUpdate, deps ProfileDeps) ProfileResult[U] {
	var resp profileUpdateResponse[U]
	var err error
	if in.Form != nil {
		err = deps.Upload(ctx, http.MethodPatch, api.EndpointProfile, *in.Form, &resp)
	} else {
		err = deps.Patch(ctx, api.EndpointProfile, in.Body, &resp)
	}
	if err != nil {
		return ProfileResult[U]{Failure: profileFailure(err), Err: err}
	}
	return ProfileResult[U]{User: resp.User, Message: resp.Message}
}

func profileFailure(err error) ProfileFailureKind {
	if errors.Is(err, api.ErrUnauthorized) {
		return ProfileFailureUnauthorized
	}
	return ProfileFailureRequest
}
