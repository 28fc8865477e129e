package wasmhost

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/videolab/framehost/pkg/guestmem"
)

// wasmMemory adapts a wazero module memory to guestmem.Memory. The slices
// returned by api.Memory.Read alias the guest's linear memory, which is
// exactly the non-owning view the bridge requires.
type wasmMemory struct {
	mem api.Memory
}

// WrapMemory adapts mem for the bridge. A nil memory (a guest compiled
// without a linear memory) yields a memory where every resolution fails.
func WrapMemory(mem api.Memory) guestmem.Memory {
	return wasmMemory{mem: mem}
}

func (m wasmMemory) Range(offset, length uint32) ([]byte, bool) {
	if m.mem == nil {
		return nil, false
	}
	return m.mem.Read(offset, length)
}

func (m wasmMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}
