// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"time"

	"github.com/siemens/pingstream/types"

	"github.com/spf13/cobra"
	"github.com/thediveo/lxkns/log"
)

var (
	interval        *time.Duration
	count           *uint
	timeout         *time.Duration
	ipv4            *bool
	ipv6            *bool
	once            *bool
	stream          *bool
	maxCount        *uint
	unprivileged    *bool
	noPreResolve    *bool
	dnsTimeout      *time.Duration
	spinnerInterval *time.Duration
	debug           *bool
)

func newRootCmd() (rootCmd *cobra.Command) {
	rootCmd = &cobra.Command{
		Use:     "pingstream [flags] target",
		Short:   "pingstream probes a target host with ICMP echoes and streams the outcomes",
		Version: version(),
		Args:    cobra.ExactArgs(1),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if *ipv4 && *ipv6 {
				return fmt.Errorf("--ipv4 and --ipv6 are mutually exclusive")
			}
			if *once && *stream {
				return fmt.Errorf("--once and --stream are mutually exclusive")
			}
			if err := types.ValidateInterval(*interval, "--interval"); err != nil {
				return err
			}
			if !*once && !*stream {
				if err := types.ValidateCount(int(*count), "--count"); err != nil {
					return err
				}
			}
			if *timeout != 0 {
				if err := types.ValidateRunTimeout(*timeout, *interval); err != nil {
					return err
				}
			}
			if *maxCount != 0 {
				if err := types.ValidateMaxCount(int(*maxCount)); err != nil {
					return err
				}
			}
			if *spinnerInterval < 10*time.Millisecond {
				return fmt.Errorf("--spinner must be at least 10ms")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if *debug {
				log.SetLevel(log.DebugLevel)
				log.Debugf("debug logging enabled")
			}
			return PingAndReport(cmd.Context(), args[0])
		},
	}
	// Sets up the flags.
	interval = rootCmd.PersistentFlags().Duration(
		"interval", time.Second, "spacing between probes (multiple of 100ms)")
	count = rootCmd.PersistentFlags().Uint(
		"count", 4, "number of probes in a bounded run")
	timeout = rootCmd.PersistentFlags().Duration(
		"timeout", 0, "overall deadline of a bounded run (0: none)")
	ipv4 = rootCmd.PersistentFlags().BoolP(
		"ipv4", "4", false, "probe IPv4 addresses only")
	ipv6 = rootCmd.PersistentFlags().BoolP(
		"ipv6", "6", false, "probe IPv6 addresses only")
	once = rootCmd.PersistentFlags().Bool(
		"once", false, "send a single probe and report its outcome")
	stream = rootCmd.PersistentFlags().Bool(
		"stream", false, "probe indefinitely, streaming outcomes")
	maxCount = rootCmd.PersistentFlags().Uint(
		"max-count", 0, "truncate a stream after this many events (0: unbounded)")
	unprivileged = rootCmd.PersistentFlags().Bool(
		"unprivileged", false, "use unprivileged UDP-based pings")
	noPreResolve = rootCmd.PersistentFlags().Bool(
		"no-dns-preresolve", false, "hand hostname targets unresolved to the echo producer")
	dnsTimeout = rootCmd.PersistentFlags().Duration(
		"dns-timeout", 0, "hostname resolution deadline (0: one interval)")
	spinnerInterval = rootCmd.PersistentFlags().Duration(
		"spinner", 100*time.Millisecond, "spinner interval")
	debug = rootCmd.PersistentFlags().Bool(
		"debug", false, "enable debugging output")
	return
}
