package driver

import (
	"fmt"
	"strings"
)

// Strategy says how a Locator's query is interpreted.
type Strategy int

const (
	StrategyName Strategy = iota + 1
	StrategyXPath
	StrategyCSS
)

func (s Strategy) String() string {
	switch s {
	case StrategyName:
		return "name"
	case StrategyXPath:
		return "xpath"
	case StrategyCSS:
		return "css"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Locator is ByName | ByXPath | ByCSS.
type Locator struct {
	Strategy Strategy
	Query    string
}

// ByName matches elements whose name attribute equals name.
func ByName(name string) Locator {
	return Locator{Strategy: StrategyName, Query: name}
}

// ByXPath matches an XPath expression.
func ByXPath(expr string) Locator {
	return Locator{Strategy: StrategyXPath, Query: expr}
}

// ByCSS matches a CSS selector.
func ByCSS(selector string) Locator {
	return Locator{Strategy: StrategyCSS, Query: selector}
}

func (l Locator) String() string {
	return l.Strategy.String() + "=" + l.Query
}

// CSS returns the CSS selector for name and css locators. XPath locators
// have no CSS form and return ok=false.
func (l Locator) CSS() (selector string, ok bool) {
	switch l.Strategy {
	case StrategyName:
		return `[name="` + strings.ReplaceAll(l.Query, `"`, `\"`) + `"]`, true
	case StrategyCSS:
		return l.Query, true
	default:
		return "", false
	}
}
