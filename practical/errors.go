package practical

import (
	"fmt"

	"github.com/warp/comp-planner/matrix"
)

// ErrDerivedCell is returned for a direct write to an "all" zone or Total
// slice. It is a client error (matrix.IsClientError).
var ErrDerivedCell = fmt.Errorf("%w: derived slice is not directly editable", matrix.ErrInvalidInput)

// NotFoundError names coordinates that are not in the view. It unwraps to
// matrix.ErrCellNotFound so matrix.IsNotFound covers both engines.
type NotFoundError struct {
	Level string
	Zone  string
	Band  string
	Grade string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("practical cell not found: level=%q zone=%q band=%q grade=%q", e.Level, e.Zone, e.Band, e.Grade)
}

func (e *NotFoundError) Unwrap() error {
	return matrix.ErrCellNotFound
}
