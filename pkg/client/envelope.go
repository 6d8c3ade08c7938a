package client

import (
	"encoding/json"
	"errors"

	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// failEnvelope converts an error into a failure envelope, preserving the
// request id carried by a typed error.
func failEnvelope(err error) types.Result {
	var typed *types.Error
	if errors.As(err, &typed) && typed.RequestID != "" {
		return types.Fail(typed.RequestID, err)
	}
	return types.Fail(transport.LocalRequestID(), err)
}

// remoteErr wraps a remote semantic failure as a typed error.
func remoteErr(resp *transport.Response) error {
	return types.NewError(types.KindRemoteRejected, resp.RequestID, "%s", resp.ErrorMessage)
}

// decode unmarshals a response payload.
func decode(resp *transport.Response, v any) error {
	if len(resp.Data) == 0 {
		return types.NewError(types.KindRemoteRejected, resp.RequestID, "response carried no payload")
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		return types.NewError(types.KindRemoteRejected, resp.RequestID, "undecodable response payload: %v", err)
	}
	return nil
}
