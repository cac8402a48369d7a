// Package qemu builds QEMU launch configuration and owns the running
// emulator process for a session.
package qemu

import (
	"fmt"
	"strings"

	"github.com/virtshell/vshell/internal/plan"
)

// Well-known names inside the runtime directory and the guest.
const (
	// CDROMImage is the bootable installation image name.
	CDROMImage = "system.iso"

	// HDDImage is the hard disk image name.
	HDDImage = "disk.img"

	// StorageMountTag identifies the host storage passthrough device.
	// The guest locates the share by this tag, so it never changes.
	StorageMountTag = "host_storage"

	// DefaultDNSUpstream is the resolver handed to QEMU's internal DNS.
	DefaultDNSUpstream = "8.8.8.8"

	// HostStoragePath is the host directory exported to the guest when
	// external storage is mounted.
	HostStoragePath = "/storage/self/primary"
)

// Entry is a single launch option. Value is empty for bare flags.
type Entry struct {
	Option string
	Value  string
}

// Descriptor is the ordered launch configuration for one VM process.
// Entry order is significant: QEMU consumes options positionally, and a
// stable order keeps session launches reproducible for replay/debugging.
type Descriptor struct {
	entries []Entry

	// DNSUpstream is consumed by the process environment, not the argv.
	DNSUpstream string
}

func (d *Descriptor) add(option, value string) {
	d.entries = append(d.entries, Entry{Option: option, Value: value})
}

// Entries returns the configuration entries in launch order.
func (d *Descriptor) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// HasOption reports whether any entry uses the given option.
func (d *Descriptor) HasOption(option string) bool {
	for _, e := range d.entries {
		if e.Option == option {
			return true
		}
	}
	return false
}

// Args flattens the descriptor into an argv slice.
func (d *Descriptor) Args() []string {
	args := make([]string, 0, len(d.entries)*2)
	for _, e := range d.entries {
		args = append(args, e.Option)
		if e.Value != "" {
			args = append(args, e.Value)
		}
	}
	return args
}

// String renders the descriptor the way it would appear on a command line.
func (d *Descriptor) String() string {
	return strings.Join(d.Args(), " ")
}

// BuildDescriptor produces the launch configuration for a VM rooted at
// runtimeDir. It is pure and total: identical inputs yield an identical
// descriptor. storageMounted is evaluated by the caller once at session
// start and frozen here, never re-checked.
func BuildDescriptor(runtimeDir string, budget plan.Budget, storageMounted bool, dnsUpstream string) *Descriptor {
	d := &Descriptor{DNSUpstream: dnsUpstream}

	// Firmware and keymap search path.
	d.add("-L", runtimeDir)

	// Emulate a CPU with the maximum feature set.
	d.add("-cpu", "max")

	// Memory and software-emulation buffer from the planned budget.
	d.add("-m", fmt.Sprintf("%dM", budget.VMMemoryMB))
	d.add("-accel", fmt.Sprintf("tcg,tb-size=%d", budget.TCGBufferMB))

	// No implicit default devices; the topology below is exhaustive.
	d.add("-nodefaults", "")

	// CD-ROM and hard disk behind a single virtio SCSI controller.
	d.add("-drive", "file="+runtimeDir+"/"+CDROMImage+",if=none,media=cdrom,index=0,id=cd0")
	d.add("-drive", "file="+runtimeDir+"/"+HDDImage+",if=none,index=2,discard=unmap,detect-zeroes=unmap,cache=writeback,id=hd0")
	d.add("-device", "virtio-scsi-pci,id=virtio-scsi-pci0")
	d.add("-device", "scsi-cd,bus=virtio-scsi-pci0.0,id=scsi-cd0,drive=cd0")
	d.add("-device", "scsi-hd,bus=virtio-scsi-pci0.0,id=scsi-hd0,drive=hd0")

	// Try the hard disk first. Its boot record chain-loads the CD-ROM
	// when no OS is installed yet.
	d.add("-boot", "c,menu=on")

	// Entropy from the host.
	d.add("-object", "rng-random,filename=/dev/urandom,id=rng0")
	d.add("-device", "virtio-rng-pci,rng=rng0,id=virtio-rng-pci0")

	// User-mode networking.
	d.add("-netdev", "user,id=vmnic0")
	d.add("-device", "virtio-net-pci,netdev=vmnic0,id=virtio-net-pci0")

	// Host storage passthrough, present iff storage was mounted when the
	// session started.
	if storageMounted {
		d.add("-fsdev", "local,security_model=none,id=fsdev0,multidevs=remap,path="+HostStoragePath)
		d.add("-device", "virtio-9p-pci,fsdev=fsdev0,mount_tag="+StorageMountTag+",id=virtio-9p-pci0")
	}

	// Serial console only: no graphics, no parallel port.
	d.add("-nographic", "")
	d.add("-parallel", "none")
	d.add("-chardev", "stdio,id=serial0,mux=off,signal=off")
	d.add("-serial", "chardev:serial0")

	return d
}
