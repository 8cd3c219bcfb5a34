// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tosca-rt/corevm/api"
	"github.com/tosca-rt/corevm/dispatch"
	"github.com/tosca-rt/corevm/gc"
)

var StatusCmd = cli.Command{
	Action: doStatus,
	Name:   "status",
	Usage:  "reports the GC byte count of a fresh universe, optionally installing a new pause first",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "pause",
			Usage: "installs a new pause percentage before reporting",
			Value: -1,
		},
	},
}

func doStatus(context *cli.Context) error {
	collector := gc.NewNoop()
	s, err := api.NewState(api.WithCollector(collector))
	if err != nil {
		return fmt.Errorf("could not create state: %w", err)
	}
	defer s.Close()

	if pause := context.Int("pause"); pause >= 0 {
		prev := s.GC(api.GCSetPause, pause)
		fmt.Printf("pause: %d -> %d\n", prev, pause)
	}

	kib := s.GC(api.GCCount, 0)
	remainder := s.GC(api.GCCountRemainder, 0)
	fmt.Printf("tracked: %s (%d KiB + %d B)\n", collector.FormatBytes(), kib, remainder)

	if names := dispatch.Names(); len(names) > 0 {
		fmt.Printf("dispatchers: %v\n", names)
	}
	return nil
}
