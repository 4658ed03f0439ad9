package trap

import _ "unsafe" // for go:linkname

// TrapVector is the stvec target: a real build supplies it in assembly.
// Its documented flow,
// mirrored here only as a comment since this repo ships no assembly:
//
//	1. swap sscratch <-> t6
//	2. save integer registers (and float registers iff sstatus.FS ==
//	   Dirty) into the TaskTrapFrame t6 now points at
//	3. load this hart's trap-stack sp/gp/tp from HartFrameInfo
//	4. call HandleTrap(sepc, stval, scause, sstatus, frame), frame being
//	   the TaskTrapFrame sscratch held
//	5. write the returned pc back into sepc
//	6. restore registers, swap sscratch <-> t6 back, sret
//
//go:linkname TrapVector TrapVector
//go:nosplit
func TrapVector()
