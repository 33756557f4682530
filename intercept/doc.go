// Package intercept's Chain runs a set of Interceptor hooks in strict
// ascending Priority order, ties broken by registration order.
// BeforeExecution/AfterExecution/BeforeStage/AfterStage hooks all run
// in that same order; OnError hooks run in order too, but
// short-circuit on the first one that reports the error handled.
package intercept
