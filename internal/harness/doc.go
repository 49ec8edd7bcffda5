// Package harness runs conformance scenarios against a real engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: owner_runs_heal
//	description: "An owner can heal their own actor"
//	policy:
//	  ownership: true
//	  presence: false
//	world:
//	  users: [...]
//	  actors: [...]
//	  scenes: [...]
//	slots:
//	  - name: Heal
//	    enabled: true
//	    code: |
//	      ctx.update_actor(ctx.actor.id, {hp = 10})
//	      return "healed"
//	steps:
//	  - run: Heal
//	    as: alice
//	    actor: hero
//	    args: { amount: 3 }
//	    expect:
//	      result: healed
//	  - run: Heal
//	    as: bob
//	    actor: hero
//	    expect:
//	      code: NOT_OWNER
//
// When world is omitted the scenario uses the standard test table from
// internal/testutil.
//
// # Determinism
//
// Each scenario gets a fresh in-memory settings store, a fresh world, a step
// clock and sequential run ids, so the trace it produces is byte-stable and
// can be compared against testdata/golden/<name>.golden.
package harness
