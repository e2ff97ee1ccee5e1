package validator

import (
	"ctchen222/galactic-tictactoe/internal/game"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	// Initialize validation
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("mark", validateMark); err != nil {
		panic(err)
	}
}

func GetValidator() *validator.Validate {
	return validate
}

// validateMark accepts an empty cell or a player mark.
func validateMark(fl validator.FieldLevel) bool {
	mark := game.PlayerMark(fl.Field().String())
	return mark == game.None || mark.IsPlayer()
}
