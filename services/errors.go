package services

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrFriendNotFound       = errors.New("friend user not found")
	ErrInvalidActivity      = errors.New("invalid activity")
	ErrFriendshipExists     = errors.New("friendship already exists")
	ErrFriendshipNotFound   = errors.New("friendship not found")
	ErrSelfFriend           = errors.New("cannot add yourself as a friend")
	ErrNotificationNotFound = errors.New("notification not found")
)
