package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteRoot, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// COMPUTE
	s.RegisterRouteHandler("GET "+RouteComputeAvailable, ChainMiddleware(s.AvailableGPUsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteComputeGPUTypes, ChainMiddleware(s.AvailableGPUsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteComputeSelect, ChainMiddleware(s.SelectComputeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteComputeInstances, ChainMiddleware(s.SelectComputeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteComputeInstances, ChainMiddleware(s.ListInstancesHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteComputeInstance, ChainMiddleware(s.InstanceStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteComputeStop, ChainMiddleware(s.StopInstanceHandler(), s.APIMiddleware()...))

	// SESSIONS
	s.RegisterRouteHandler("POST "+RouteSessionCreate, ChainMiddleware(s.CreateSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.GetSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteSession, ChainMiddleware(s.DeleteSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionExtend, ChainMiddleware(s.ExtendSessionHandler(), s.APIMiddleware()...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPreflight, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
