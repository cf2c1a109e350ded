// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/imu"
)

// TypeACC is the sentence type emitted by the accelerometer bridge:
//
//	$FRACC,<ax>,<ay>,<az>*CS
//
// with values in m/s².
const TypeACC = "ACC"

// ACC is a decoded acceleration sentence.
type ACC struct {
	nmea.BaseSentence
	Ax, Ay, Az float64
}

var registerOnce sync.Once

func registerACC() {
	registerOnce.Do(func() {
		err := nmea.RegisterParser(TypeACC, func(s nmea.BaseSentence) (nmea.Sentence, error) {
			p := nmea.NewParser(s)
			m := ACC{
				BaseSentence: s,
				Ax:           p.Float64(0, "ax"),
				Ay:           p.Float64(1, "ay"),
				Az:           p.Float64(2, "az"),
			}
			return m, p.Err()
		})
		if err != nil {
			log.Error().Err(err).Msg("sensors: register ACC parser")
		}
	})
}

// ParseACC decodes one bridge line, checksum included.
func ParseACC(line string) (imu.Sample, error) {
	registerACC()
	s, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return imu.Sample{}, err
	}
	m, ok := s.(ACC)
	if !ok {
		return imu.Sample{}, fmt.Errorf("sensors: unexpected sentence type %q", s.DataType())
	}
	return imu.Sample{Source: "serial", Ax: m.Ax, Ay: m.Ay, Az: m.Az}, nil
}

// SerialSource reads ACC sentences in its own goroutine and hands the latest
// sample to the main loop through an imu.Slot.
type SerialSource struct {
	slot *imu.Slot
	rc   io.ReadCloser
	done chan struct{}
}

// OpenSerial opens a UART bridge.
func OpenSerial(port string, baud uint, maxAge time.Duration) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	log.Info().Str("port", port).Uint("baud", baud).Msg("sensors: serial bridge opened")
	return NewStreamSource(rc, maxAge), nil
}

// NewStreamSource starts reading sentences from rc.
func NewStreamSource(rc io.ReadCloser, maxAge time.Duration) *SerialSource {
	registerACC()
	s := &SerialSource{slot: imu.NewSlot(maxAge), rc: rc, done: make(chan struct{})}
	go s.readLoop()
	return s
}

func (s *SerialSource) readLoop() {
	defer close(s.done)
	scanner := bufio.NewScanner(s.rc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}
		sample, err := ParseACC(line)
		if err != nil {
			log.Debug().Err(err).Str("line", line).Msg("sensors: dropped sentence")
			continue
		}
		s.slot.Store(sample)
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("sensors: serial read stopped")
	}
}

// Next returns the most recent sample.
func (s *SerialSource) Next() (imu.Sample, error) {
	return s.slot.Next()
}

// Close closes the port and waits for the reader to exit.
func (s *SerialSource) Close() error {
	err := s.rc.Close()
	<-s.done
	return err
}
