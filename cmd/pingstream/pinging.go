// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/siemens/pingstream/echo"
	"github.com/siemens/pingstream/ping"
	"github.com/siemens/pingstream/types"

	"github.com/gosuri/uilive"
)

// PingAndReport probes the specified target according to the CLI flags — a
// single probe, a bounded run, or a live stream — and reports the outcomes
// on the terminal.
func PingAndReport(ctx context.Context, target string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	pinger, err := newPinger(target)
	if err != nil {
		return err
	}
	switch {
	case *once:
		ev, err := pinger.Once(ctx)
		if err != nil {
			return err
		}
		fmt.Println(eventLine(ev))
		return nil
	case *stream:
		return streamAndRender(ctx, pinger, target)
	}
	events, err := pinger.Run(ctx, int(*count), *timeout)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Println(eventLine(ev))
	}
	return nil
}

// newPinger translates the CLI flags into a configured Pinger.
func newPinger(target string) (*ping.Pinger, error) {
	family := types.FamilyAny
	switch {
	case *ipv4:
		family = types.FamilyV4
	case *ipv6:
		family = types.FamilyV6
	}
	dnsopts := types.DefaultDnsPreResolve()
	dnsopts.Timeout = *dnsTimeout
	if *noPreResolve {
		dnsopts.Enable = false
	}
	var nativeopts []echo.NativeOption
	if *unprivileged {
		nativeopts = append(nativeopts, echo.AsUnprivileged())
	}
	return ping.New(target,
		ping.WithInterval(*interval),
		ping.WithFamily(family),
		ping.WithDnsPreResolve(dnsopts),
		ping.WithSource(echo.NewNative(nativeopts...)))
}

// streamAndRender consumes a live event stream, rendering a continuously
// updated terminal display until the stream ends or the context is done.
func streamAndRender(ctx context.Context, pinger *ping.Pinger, target string) error {
	var streamopts []ping.StreamOption
	if *maxCount != 0 {
		streamopts = append(streamopts, ping.WithMaxCount(int(*maxCount)))
	}
	strm, err := pinger.Stream(streamopts...)
	if err != nil {
		return err
	}
	defer strm.Close()

	// Dunno what uilive's background updating mode using Start() is good for?
	// It may trigger anytime with the rendering into the buffer not yet
	// complete, thus making the terminal output very flickery. So we avoid
	// Start() and instead trigger an explicit flush to the terminal after
	// having completed the rendering.
	term := uilive.New()
	renderer := newRenderer(target)
	defer renderer.Stop()

	consumingDone := make(chan error, 1)
	go func() {
		for {
			ev, err := strm.Next(ctx)
			if err != nil {
				if errors.Is(err, ping.ErrExhausted) || errors.Is(err, context.Canceled) {
					err = nil
				}
				renderer.Done()
				consumingDone <- err
				return
			}
			renderer.Observe(ev)
		}
	}()

	renderer.Render(term)
	term.Flush()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			renderer.Render(term)
			term.Flush()
		case err := <-consumingDone:
			renderer.Render(term)
			term.Flush()
			return err
		}
	}
}
