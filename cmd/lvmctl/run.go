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
	"github.com/tosca-rt/corevm/closure"
	"github.com/tosca-rt/corevm/internal/stub"
	"github.com/tosca-rt/corevm/proto"
	"github.com/tosca-rt/corevm/value"
)

const runDispatcherName = "lvmctl-run"

var RunCmd = cli.Command{
	Action: doRun,
	Name:   "run",
	Usage:  "drives a single call through a constant-returning stub program",
	Flags: []cli.Flag{
		&cli.Float64Flag{
			Name:  "result",
			Usage: "the number the stub program returns",
			Value: 0,
		},
	},
}

func doRun(context *cli.Context) error {
	dispatcher := stub.New()
	api.RegisterDispatcher(runDispatcherName, dispatcher)

	s, err := api.NewState(api.WithDispatcher(runDispatcherName))
	if err != nil {
		return fmt.Errorf("could not create state: %w", err)
	}
	defer s.Close()

	p := proto.New("lvmctl-stub", 0, false, 4)
	dispatcher.Bind(p, []value.Value{value.Number(context.Float64("result"))})

	cl := closure.NewScript(p, nil, nil)
	if err := s.PushClosure(cl); err != nil {
		return fmt.Errorf("could not push closure: %w", err)
	}
	if err := s.Call(0, api.MultiResult); err != nil {
		return fmt.Errorf("call failed: %w", err)
	}

	top := s.GetTop()
	for i := 0; i < top; i++ {
		f, _ := s.ToNumber(i + 1)
		fmt.Printf("result[%d] = %v\n", i, f)
	}
	return nil
}
