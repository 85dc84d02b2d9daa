package app

import (
	"fmt"
	"os"
)

// ShowMarkup prints the effective markup rules.
func (a *App) ShowMarkup() error {
	mk, err := a.loadMarkup()
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, mk.String())
	return nil
}

// SetMarkupDefault updates the fallback markup.
func (a *App) SetMarkupDefault(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("markup cannot be negative: %d", amount)
	}
	mk, err := a.loadMarkup()
	if err != nil {
		return err
	}
	return mk.SetDefault(amount)
}

// SetMarkupModel sets or replaces an exact-model markup override.
func (a *App) SetMarkupModel(model string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("markup cannot be negative: %d", amount)
	}
	mk, err := a.loadMarkup()
	if err != nil {
		return err
	}
	return mk.SetModel(model, amount)
}

// DeleteMarkupModel removes an exact-model override.
func (a *App) DeleteMarkupModel(model string) error {
	mk, err := a.loadMarkup()
	if err != nil {
		return err
	}
	return mk.DeleteModel(model)
}

// SetMarkupRule sets or replaces a regex markup rule.
func (a *App) SetMarkupRule(pattern string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("markup cannot be negative: %d", amount)
	}
	mk, err := a.loadMarkup()
	if err != nil {
		return err
	}
	return mk.SetRule(pattern, amount)
}

// DeleteMarkupRule removes a regex markup rule.
func (a *App) DeleteMarkupRule(pattern string) error {
	mk, err := a.loadMarkup()
	if err != nil {
		return err
	}
	return mk.DeleteRule(pattern)
}
