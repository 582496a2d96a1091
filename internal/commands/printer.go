/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"encoding/json"
	"io"
	"sync"
)

// Writes values as JSON, one per line. Safe for concurrent use.
type jsonLinePrinter struct {
	lock *sync.Mutex
	w    io.Writer
}

func newJsonLinePrinter(w io.Writer) *jsonLinePrinter {
	return &jsonLinePrinter{
		lock: &sync.Mutex{},
		w:    w,
	}
}

func (p *jsonLinePrinter) Print(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	_, err = p.w.Write(withNewline(b))
	return err
}
