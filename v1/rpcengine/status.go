package rpcengine

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/awa-ai/awadb/v1/errs"
)

func codeOf(kind errs.Kind) codes.Code {
	switch kind {
	case errs.TableNotFound:
		return codes.NotFound
	case errs.UntypableValue, errs.TypeConflict, errs.DimensionMismatch, errs.VectorAfterFreeze,
		errs.EncodingError, errs.AmbiguousFilter, errs.InvalidQuery, errs.NoDimensionMatch:
		return codes.InvalidArgument
	case errs.EngineCreateFailed, errs.EngineAddFailed:
		return codes.FailedPrecondition
	case errs.EmbeddingFailed, errs.SnapshotIOError:
		return codes.Unavailable
	}
	return codes.Internal
}

// toStatus converts err into a gRPC status. Structured errors keep their
// kind, table and field in a Struct detail.
func toStatus(err error) error {
	var e *errs.Error
	if !errors.As(err, &e) {
		return status.FromContextError(err).Err()
	}

	msg := e.Msg
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	detail, detailErr := structpb.NewStruct(map[string]any{
		"kind":  string(e.Kind),
		"table": e.Table,
		"field": e.Field,
		"doc":   float64(e.Doc),
		"msg":   msg,
	})
	st := status.New(codeOf(e.Kind), e.Error())
	if detailErr != nil {
		return st.Err()
	}
	if withDetail, err := st.WithDetails(detail); err == nil {
		st = withDetail
	}
	return st.Err()
}

// fromStatus reverses toStatus. Statuses without a detail map NotFound to
// errs.TableNotFound and keep everything else as the status error.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		s, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		f := s.GetFields()
		return &errs.Error{
			Kind:  errs.Kind(f["kind"].GetStringValue()),
			Table: f["table"].GetStringValue(),
			Field: f["field"].GetStringValue(),
			Doc:   int(f["doc"].GetNumberValue()),
			Msg:   f["msg"].GetStringValue(),
		}
	}
	if st.Code() == codes.NotFound {
		return errs.New(errs.TableNotFound, "%s", st.Message())
	}
	return err
}
