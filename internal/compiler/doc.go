// Package compiler turns CUE class manifests into classdb registrations.
//
// A manifest declares classes under the top-level "class" field:
//
//	class: Door: {
//		parent:    "Object"
//		save_name: "LegacyDoor"
//		signals: {
//			opened: {}
//			locked: {by: string}
//		}
//		methods: {
//			open: {}
//			lock: {args: {key: int, note: "Variant"}}
//			log: {vararg: true}
//		}
//	}
//
// Argument types come from the CUE kind (string, int, float, bool, list,
// struct, or _ for any value) or from a string literal naming a variant type
// such as "Color". Declared methods carry no body; callers attach one with
// classdb.DB.Bind.
//
// Classes may appear in any order in the manifest. Register orders them
// parents first and rejects inheritance cycles.
package compiler
