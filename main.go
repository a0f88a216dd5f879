package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"glacier/vm"
)

var (
	debugVM    = flag.Bool("debug", false, "print frame state before every instruction")
	demoName   = flag.String("demo", "add", "name of the built-in demo program to run (see -list-demos)")
	listDemos  = flag.Bool("list-demos", false, "list the built-in demo program names and exit")
	listNative = flag.Bool("list-natives", false, "list the registered NativeFn names and exit")
)

func init() {
	flag.Parse()
}

func main() {
	natives := newNativeRegistry()

	if *listNative {
		printSorted(natives.Names())
		return
	}
	if *listDemos {
		printSorted(lo.Keys(demoPrograms))
		return
	}

	demo, ok := demoPrograms[*demoName]
	if !ok {
		fmt.Fprintln(os.Stderr, errors.Errorf("unknown demo %q (try -list-demos)", *demoName))
		os.Exit(1)
	}

	code, err := vm.Assemble(demo)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "assemble demo program"))
		os.Exit(1)
	}

	fn := vm.NewFunction(vm.NewList(nil), code)
	entry := vm.NewFrame(fn.Function())
	if nativeName, ok := demosUsingNativeSlot[*demoName]; ok {
		nfn, ok := natives.Lookup(nativeName)
		if !ok {
			fmt.Fprintln(os.Stderr, errors.Errorf("demo %q needs unregistered native %q", *demoName, nativeName))
			os.Exit(1)
		}
		entry.Store(1, nfn)
	}

	result, err := run(entry, *debugVM)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "run"))
		os.Exit(1)
	}
	fmt.Println(result)
}

// run drives the single-step dispatcher exactly as spec.md §2
// describes: a stack of frames, repeatedly stepped, reacting to the
// directive Step returns. Grounded on the teacher's
// RunProgram/RunProgramDebugMode (vm/run.go), rebuilt against
// Directive-based stepping instead of the register machine's
// execInstructions.
func run(entry *vm.Frame, debug bool) (vm.Value, error) {
	frames := []*vm.Frame{entry}

	for {
		top := frames[len(frames)-1]

		if debug {
			pretty.Println(top)
		}

		directive, err := vm.Step(top)
		if err != nil {
			return vm.None, errors.Wrapf(err, "at frame %d", len(frames)-1)
		}

		// A weak handle's freeing is only observable once Go's
		// collector has actually run. Forcing a cycle after every
		// instruction keeps LIST_UPGRADE's result deterministic for a
		// program like the "weak-freed" demo instead of depending on
		// whenever the runtime next happens to collect.
		runtime.GC()

		switch directive.Kind {
		case vm.DirNone:
			// fall through to next iteration, same frame

		case vm.DirJump:
			top.SetCursor(top.Cursor() + int(directive.JumpDelta))

		case vm.DirCall:
			callee := vm.NewFrame(directive.CallFn.Function())
			// Slot 0 already holds the callee's module (vm.NewFrame);
			// arguments land in slots 1.. in call order.
			for i, arg := range directive.CallArgs {
				callee.Store(uint8(i+1), arg)
			}
			frames = append(frames, callee)

		case vm.DirCallNative:
			result, nativeErr := directive.NativeFn.AsNativeFn()(directive.NativeArgs)
			if nativeErr != nil {
				return vm.None, errors.Wrap(nativeErr, "native call")
			}
			top.Push(result)

		case vm.DirReturn:
			frames = frames[:len(frames)-1]
			if len(frames) == 0 {
				return directive.ReturnValue, nil
			}
			frames[len(frames)-1].Push(directive.ReturnValue)
		}
	}
}

func printSorted(names []string) {
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
}
