// Package compiler turns stored slot source into an invocable Program.
//
// Slots are Lua 5.2. Two authoring conventions are accepted:
//
//   - Module form: the source declares, in column 0, a one-parameter
//     function named run ("function run(ctx) ... end" or
//     "run = function(ctx) ... end"). The
//     chunk is executed once at compile time to find run.
//   - Body form: anything else is the body of an implicit function whose
//     single parameter is ctx.
//
// Detect is the pure classification rule. Compile checks syntax and, for the
// module form, the entry point. Program.Invoke runs the script in a fresh
// Lua state per call; nothing is shared between invocations.
package compiler
