package repository

import "errors"

var (
	ErrBusinessNotFound = errors.New("BUSINESS_NOT_FOUND")
	ErrAlreadyClaimed   = errors.New("ALREADY_CLAIMED")
	ErrClaimNotOpen     = errors.New("INVALID_CLAIM_STATE")
	ErrDuplicateReview  = errors.New("DUPLICATE_REVIEW")
)
