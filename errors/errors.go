package errors

import "fmt"

var (
	ErrRoomNotFound    = fmt.Errorf("room not found")
	ErrRoomExists      = fmt.Errorf("room already exists")
	ErrRoomIDExhausted = fmt.Errorf("room id generation exhausted")
	ErrValidation      = fmt.Errorf("validation failed")
	ErrPollNotFound    = fmt.Errorf("poll not found")
	ErrPollClosed      = fmt.Errorf("poll is closed")
	ErrInvalidOption   = fmt.Errorf("invalid poll option")
	ErrFileNotFound    = fmt.Errorf("file not found")
	ErrFileTooLarge    = fmt.Errorf("file too large")
)
