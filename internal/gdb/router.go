/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/microsoft/gdbmi/internal/mi"
)

type shapeKind int

const (
	shapeNone shapeKind = iota
	shapeAnyToken
	shapeWildcard
	shapeDigit
)

// TokenShape is a filter on the token that preceded a record.
type TokenShape struct {
	kind  shapeKind
	digit byte
}

var (
	// Matches records without a token.
	ShapeNone = TokenShape{kind: shapeNone}

	// Matches records with any token.
	ShapeAnyToken = TokenShape{kind: shapeAnyToken}

	// Matches any record.
	ShapeWildcard = TokenShape{kind: shapeWildcard}
)

// ShapeDigit matches records whose token starts with the given digit.
// Feature code uses the first digit of the token to tell apart responses to different kinds of requests.
func ShapeDigit(c byte) TokenShape {
	return TokenShape{kind: shapeDigit, digit: c}
}

func (s TokenShape) Matches(token string, hasToken bool) bool {
	switch s.kind {
	case shapeNone:
		return !hasToken
	case shapeAnyToken:
		return hasToken && token != ""
	case shapeWildcard:
		return true
	case shapeDigit:
		return hasToken && token != "" && token[0] == s.digit
	default:
		return false
	}
}

func (s TokenShape) String() string {
	switch s.kind {
	case shapeNone:
		return "none"
	case shapeAnyToken:
		return "any"
	case shapeWildcard:
		return "*"
	default:
		return fmt.Sprintf("digit(%c)", s.digit)
	}
}

// Handler receives the results of a routed record. The synthetic token entry is removed from args.
type Handler func(args mi.Record, token string, hasToken bool)

type Route struct {
	// Literal prefix of the line text (after the token).
	Prefix  string
	Shape   TokenShape
	MinArgs int
	Handler Handler
}

// Router dispatches parsed lines to handlers. Routes are tried in registration order; the first route whose
// prefix, token shape and minimum argument count all match wins. Lines that match no route are dropped.
type Router struct {
	lock   *sync.RWMutex
	routes []Route
	frozen bool
	log    logr.Logger
}

func NewRouter(log logr.Logger) *Router {
	return &Router{
		lock: &sync.RWMutex{},
		log:  log.WithName("router"),
	}
}

// On registers a route. Routes must be registered before the router is frozen (i.e. before a session starts).
func (r *Router) On(prefix string, shape TokenShape, minArgs int, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("route %q has no handler", prefix)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: %q", ErrRouterFrozen, prefix)
	}
	r.routes = append(r.routes, Route{Prefix: prefix, Shape: shape, MinArgs: minArgs, Handler: handler})
	return nil
}

// Freeze ends route registration.
func (r *Router) Freeze() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.frozen = true
}

// Routes returns a copy of the route table.
func (r *Router) Routes() []Route {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]Route{}, r.routes...)
}

// Dispatch invokes the handler of the first matching route. Returns false if no route matched.
func (r *Router) Dispatch(line *mi.Line) bool {
	args := line.Args.Without(mi.TokenKey)

	r.lock.RLock()
	var matched *Route
	for i := range r.routes {
		rt := &r.routes[i]
		if strings.HasPrefix(line.Residual, rt.Prefix) &&
			rt.Shape.Matches(line.Token, line.HasToken) &&
			args.Len() >= rt.MinArgs {
			matched = rt
			break
		}
	}
	r.lock.RUnlock()

	if matched == nil {
		r.log.V(2).Info("No route for line, dropping", "Line", line.Residual, "Token", line.Token)
		return false
	}

	matched.Handler(args, line.Token, line.HasToken)
	return true
}
