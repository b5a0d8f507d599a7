// Package fuzztests houses Go fuzz harnesses for the unit pipeline
// (bytes -> SIR decode -> validate -> lower). Its goal is to smoke test
// robustness and guard against panics or runaway lowering on arbitrary
// interchange input.
//
// Назначение: прогонять произвольные байты через декодер SIR и драйвер.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/sir, internal/driver, internal/uplc.
package fuzztests
