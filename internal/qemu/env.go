package qemu

// BuildEnv produces the environment for the VM process. The order is fixed
// so launches stay reproducible. The descriptor carries the DNS upstream
// consumed by QEMU's own resolver.
func BuildEnv(d *Descriptor, runtimeDir, tmpDir string) []string {
	return []string{
		"HOME=" + runtimeDir,
		"VSHELL_RUNTIME_DIR=" + runtimeDir,
		"LANG=en_US.UTF-8",
		"PATH=/usr/bin:/bin",
		"TMPDIR=" + tmpDir,
		"CONFIG_QEMU_DNS=" + d.DNSUpstream,
	}
}
