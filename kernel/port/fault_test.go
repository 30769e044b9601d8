package port

import "testing"

func TestDecodePrecedence(t *testing.T) {
	cases := []struct {
		name string
		info FaultInfo
		want FaultClass
	}{
		{"stack overflow wins over everything", FaultInfo{StackOverflow: true, Unaligned: true, BusFault: true}, FaultStackOverflow},
		{"unaligned before divide by zero", FaultInfo{Unaligned: true, DivByZero: true}, FaultUnaligned},
		{"mem fault with address", FaultInfo{MMFault: true, MMHasAddr: true}, FaultDataAccessOutOfRegion},
		{"mem fault without address", FaultInfo{MMFault: true}, FaultDataAccessOutOfRegionNoAddr},
		{"instruction fetch mem fault before data fault", FaultInfo{InstrFetchMM: true, MMFault: true}, FaultInstructionFetchOutOfRegion},
		{"bus fault falls through usage/mem checks", FaultInfo{BusFault: true}, FaultBusError},
		{"nothing set is an unclassified hard fault", FaultInfo{}, FaultUnknownHard},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Decode(c.info); got != c.want {
				t.Fatalf("Decode(%+v) = %s, want %s", c.info, got, c.want)
			}
		})
	}
}

func TestFaultClassString(t *testing.T) {
	if FaultStackOverflow.String() != "stack-overflow" {
		t.Fatalf("String() = %q", FaultStackOverflow.String())
	}
	if FaultClass(200).String() != "unknown-hard-fault" {
		t.Fatalf("String() for an out-of-range class = %q", FaultClass(200).String())
	}
}
