package dynamodb

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	apperrors "mentraflow-backend/pkg/errors"
)

// dbError classifies an SDK error. Throttling becomes an unavailable error so
// callers can tell it apart from a broken request; the DynamoDB error code is
// kept in the details.
func dbError(operation string, err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return apperrors.NewDatabaseError(operation, err)
	}

	details := map[string]interface{}{"aws_error_code": ae.ErrorCode()}
	switch ae.ErrorCode() {
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
		return apperrors.NewServiceUnavailableError("dynamodb").WithCause(err).WithDetails(details)
	default:
		return apperrors.NewDatabaseError(operation, err).WithDetails(details)
	}
}

// conditionFailed reports whether a transaction was cancelled by a failed
// condition check rather than by contention or a broken request.
func conditionFailed(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
