// Package valueobject holds the identity value objects. Constructors parse and
// validate; an invalid Email or Username cannot be built.
package valueobject

import "github.com/go-playground/validator/v10"

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New()
