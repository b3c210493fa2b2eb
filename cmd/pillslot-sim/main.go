/*
pillslot-sim - Simulates a pill slot sensor on a serial port
Copyright (C) 2026, The Medisense Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"github.com/medisense/pillslot-monitor/packet"
)

var version = "<not set>"

var log = logrus.New()

type Args struct {
	Port       string  `arg:"-p,--port,required" help:"serial port to write packets to"`
	BaudRate   int     `arg:"-b,--baud" help:"baud rate" default:"115200"`
	Slot       uint8   `arg:"--slot" help:"slot id to report" default:"1"`
	Weight     float64 `arg:"--weight" help:"starting bottle weight in grams" default:"134.0"`
	PillWeight float64 `arg:"--pill-weight" help:"weight of one pill in grams" default:"0.6"`
	Interval   int     `arg:"--interval" help:"seconds between packets" default:"2"`
	TakeEvery  int     `arg:"--take-every" help:"emit a TAKEN event every n packets, 0 for never" default:"20"`
	Jitter     float64 `arg:"--jitter" help:"random noise amplitude in grams" default:"0.3"`
}

func (Args) Version() string {
	return version
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] %s\n", strings.ToUpper(entry.Level.String()), entry.Message)), nil
}

func main() {
	if err := runMain(); err != nil {
		log.Fatal(err.Error())
	}
}

func runMain() error {
	log.SetFormatter(new(customFormatter))
	args := Args{}
	arg.MustParse(&args)

	log.Info("Running version: ", version)

	port, err := serial.OpenPort(&serial.Config{Name: args.Port, Baud: args.BaudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port '%s': %v", args.Port, err)
	}
	defer port.Close()

	baseline := args.Weight
	weight := args.Weight
	sequence := uint8(0)

	log.Infof("Simulating slot %d at %.1f g on %s", args.Slot, weight, args.Port)
	for i := 0; ; i++ {
		flags := uint8(packet.FlagStable)
		deltaMg := int16(0)

		if args.TakeEvery > 0 && i > 0 && i%args.TakeEvery == 0 {
			weight -= args.PillWeight
			flags = packet.FlagTaken
			deltaMg = int16(-args.PillWeight * 1000)
			log.Infof("Dose taken, weight now %.1f g", weight)
		}

		noisy := weight + (rand.Float64()*2-1)*args.Jitter
		pkt := &packet.TelemetryPacket{
			SlotIDHint:          args.Slot,
			Flags:               flags,
			DeltaMilligrams:     deltaMg,
			WeightGrams:         noisy,
			DeviceBaselineGrams: baseline,
			Sequence:            sequence,
		}
		sequence++

		if _, err := port.Write(pkt.Encode()); err != nil {
			return fmt.Errorf("failed to write packet: %v", err)
		}
		log.Debugf("Sent packet seq %d, %.1f g", pkt.Sequence, noisy)

		time.Sleep(time.Duration(args.Interval) * time.Second)
	}
}
