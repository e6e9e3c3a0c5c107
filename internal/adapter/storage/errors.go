package storage

import "errors"

var ErrDuplicateOrder = errors.New("order already exists")
