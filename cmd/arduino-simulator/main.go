// Command arduino-simulator is a PTY-backed stand-in for a real Arduino:
// it speaks the SLIP/CRC-8 wire protocol on the device side, answering the
// tag-0 identity query and any function in its manifest with a canned
// response. Point a real adapter's --line flag at the printed PTY path to
// exercise the adapter without real hardware.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/librescoot/arduino-mcp-adapter/internal/manifest"
	"github.com/librescoot/arduino-mcp-adapter/internal/slip"
	"github.com/librescoot/arduino-mcp-adapter/internal/wire"
)

const bootDelay = 3 * time.Second

func main() {
	manifestPath := flag.String("manifest", "", "path to a manifest JSON file describing this simulated device")
	identity := flag.String("identity", "sim-rover-1", "device identity string returned for the tag-0 query")
	interactive := flag.Bool("interactive", false, "enable a raw-mode console for injecting error frames")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	var m manifest.Manifest
	if *manifestPath != "" {
		data, err := os.ReadFile(*manifestPath)
		if err != nil {
			log.Fatalf("reading manifest: %v", err)
		}
		if err := json.Unmarshal(data, &m); err != nil {
			log.Fatalf("parsing manifest: %v", err)
		}
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		log.Fatalf("opening pty: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	log.Printf("simulated device available at %s", tty.Name())
	log.Printf("waiting %s to simulate device boot", bootDelay)
	time.Sleep(bootDelay)
	log.Printf("ready")

	sim := &simulator{ptmx: ptmx, manifest: &m, identity: *identity}

	done := make(chan struct{})
	go sim.serve(done)

	if *interactive {
		sim.runConsole()
	}
	<-done
}

type simulator struct {
	ptmx     *os.File
	manifest *manifest.Manifest
	identity string
}

// serve reads bytes off the PTY master, feeds them through a SLIP
// decoder, and answers each completed command frame.
func (s *simulator) serve(done chan struct{}) {
	defer close(done)
	decoder := slip.NewDecoder()
	buf := make([]byte, 256)

	for {
		n, err := s.ptmx.Read(buf)
		if err != nil {
			log.Printf("pty closed: %v", err)
			return
		}
		for i := 0; i < n; i++ {
			frame, ferr := decoder.Feed(buf[i])
			if ferr != nil {
				log.Printf("malformed frame from adapter: %v", ferr)
				decoder.Reset()
				continue
			}
			if frame == nil {
				continue
			}
			s.handleFrame(frame)
		}
	}
}

func (s *simulator) handleFrame(frame []byte) {
	if len(frame) < 1 {
		return
	}
	if slip.CRC8(frame) != 0 {
		log.Printf("dropping command with bad CRC")
		return
	}

	command := frame[:len(frame)-1]
	tag := command[0]

	var response []byte
	switch {
	case tag == 0x00:
		enc := wire.NewEncoder()
		enc.WriteCStr(s.identity)
		response = enc.Bytes()
	default:
		fn, ok := findByTag(s.manifest, tag)
		if !ok {
			response = []byte{0xFF, 0x02}
		} else {
			response = cannedResponse(fn)
		}
	}

	s.writeResponse(response)
}

func findByTag(m *manifest.Manifest, tag byte) (manifest.Function, bool) {
	for _, f := range m.Functions {
		if f.Tag == tag {
			return f, true
		}
	}
	return manifest.Function{}, false
}

// cannedResponse manufactures a plausible return value for f so the
// simulator can exercise a real adapter end to end without modeling true
// device behavior.
func cannedResponse(f manifest.Function) []byte {
	if !f.HasReturn() {
		return nil
	}
	enc := wire.NewEncoder()
	switch wire.ParamType(f.Return) {
	case wire.TypeI16:
		enc.WriteI16(42)
	case wire.TypeI32:
		enc.WriteI32(1000)
	case wire.TypeF32:
		enc.WriteF32(3.14)
	case wire.TypeF64:
		enc.WriteF64(3.14)
	case wire.TypeBool:
		enc.WriteBool(true)
	default:
		enc.WriteCStr("ok")
	}
	return enc.Bytes()
}

func (s *simulator) writeResponse(payload []byte) {
	frame := append(append([]byte{}, payload...), slip.CRC8(payload))
	if _, err := s.ptmx.Write(slip.Encode(frame)); err != nil {
		log.Printf("writing response: %v", err)
	}
}

// runConsole offers a single-keystroke raw-mode console for injecting
// device-side error frames, useful for exercising the adapter's error paths
// without real hardware faults. [q] leaves the console only; the simulator
// keeps serving the PTY afterwards.
func (s *simulator) runConsole() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fmt.Fprintln(os.Stderr, "stdin is not a terminal, interactive console disabled")
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Printf("failed to enter raw mode: %v", err)
		return
	}
	defer term.Restore(fd, oldState)

	fmt.Fprint(os.Stderr, "\r\n[c]=inject CRC error  [u]=inject unknown-tag error  [q]=quit\r\n")

	reader := bufio.NewReader(os.Stdin)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return
		}
		switch b {
		case 'c':
			s.writeResponse([]byte{0xFF, 0x01})
			fmt.Fprint(os.Stderr, "\r\ninjected CRC-mismatch error frame\r\n")
		case 'u':
			s.writeResponse([]byte{0xFF, 0x02})
			fmt.Fprint(os.Stderr, "\r\ninjected unknown-tag error frame\r\n")
		case 'q':
			fmt.Fprint(os.Stderr, "\r\nexiting\r\n")
			return
		}
	}
}
