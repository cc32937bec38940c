package apierrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus_MapsKindToCode(t *testing.T) {
	err := New(KindContainerNotFound, "container xyz not found")
	st := ToStatus(err)
	require.Equal(t, codes.NotFound, status.Code(st))
}

func TestToStatus_UnknownErrorMapsToUnknown(t *testing.T) {
	st := ToStatus(errors.New("boom"))
	require.Equal(t, codes.Unknown, status.Code(st))
}

func TestToStatus_WrappedErrorUnwraps(t *testing.T) {
	inner := New(KindInvalidArgument, "bad regex")
	outer := fmt.Errorf("filter build failed: %w", inner)
	st := ToStatus(outer)
	require.Equal(t, codes.InvalidArgument, status.Code(st))
}

func TestToStatus_Nil(t *testing.T) {
	require.NoError(t, ToStatus(nil))
}
